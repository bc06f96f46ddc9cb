package logging

// Convenience functions for quick logging without fetching a logger first.
// These are no-ops when the category is disabled.

func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

func Brain(format string, args ...interface{}) { Get(CategoryBrain).Info(format, args...) }

func BrainDebug(format string, args ...interface{}) { Get(CategoryBrain).Debug(format, args...) }

func BrainWarn(format string, args ...interface{}) { Get(CategoryBrain).Warn(format, args...) }

func Kernel(format string, args ...interface{}) { Get(CategoryKernel).Info(format, args...) }

func KernelDebug(format string, args ...interface{}) { Get(CategoryKernel).Debug(format, args...) }

func KernelWarn(format string, args ...interface{}) { Get(CategoryKernel).Warn(format, args...) }

func Memory(format string, args ...interface{}) { Get(CategoryMemory).Info(format, args...) }

func MemoryDebug(format string, args ...interface{}) { Get(CategoryMemory).Debug(format, args...) }

func MemoryWarn(format string, args ...interface{}) { Get(CategoryMemory).Warn(format, args...) }

func Vision(format string, args ...interface{}) { Get(CategoryVision).Info(format, args...) }

func VisionDebug(format string, args ...interface{}) { Get(CategoryVision).Debug(format, args...) }

func Voice(format string, args ...interface{}) { Get(CategoryVoice).Info(format, args...) }

func VoiceDebug(format string, args ...interface{}) { Get(CategoryVoice).Debug(format, args...) }

func VoiceWarn(format string, args ...interface{}) { Get(CategoryVoice).Warn(format, args...) }

func Exec(format string, args ...interface{}) { Get(CategoryExec).Info(format, args...) }

func ExecDebug(format string, args ...interface{}) { Get(CategoryExec).Debug(format, args...) }

func ExecWarn(format string, args ...interface{}) { Get(CategoryExec).Warn(format, args...) }

func ExecError(format string, args ...interface{}) { Get(CategoryExec).Error(format, args...) }

func Librarian(format string, args ...interface{}) { Get(CategoryLibrarian).Info(format, args...) }

func LibrarianDebug(format string, args ...interface{}) {
	Get(CategoryLibrarian).Debug(format, args...)
}

func Embedding(format string, args ...interface{}) { Get(CategoryEmbedding).Info(format, args...) }

func EmbeddingDebug(format string, args ...interface{}) {
	Get(CategoryEmbedding).Debug(format, args...)
}
