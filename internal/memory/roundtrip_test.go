package memory

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

// A second Store on the same file must see exactly what the first one
// wrote, modulo timestamps.
func TestStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")

	first := NewStore(path)
	_, err := first.StoreFact("home_city", "Lisbon", "moving chat")
	require.NoError(t, err)
	_, err = first.StoreFact("has_resume", "False", "job chat")
	require.NoError(t, err)

	second := NewStore(path)
	want, err := first.Facts()
	require.NoError(t, err)
	got, err := second.Facts()
	require.NoError(t, err)

	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Fact{}, "Timestamp")); diff != "" {
		t.Errorf("facts mismatch after reopen (-want +got):\n%s", diff)
	}

	wantHist, err := first.History()
	require.NoError(t, err)
	gotHist, err := second.History()
	require.NoError(t, err)
	if diff := cmp.Diff(wantHist, gotHist); diff != "" {
		t.Errorf("history mismatch after reopen (-want +got):\n%s", diff)
	}
}
