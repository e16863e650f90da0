package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/ledger"
)

func TestTrailAppendOrderAndImmutability(t *testing.T) {
	trail := NewTrail("session-1")

	trail.Append(RoundRecord{RoundNumber: 1, Phase: "propose"})
	trail.Append(RoundRecord{RoundNumber: 1, Phase: "challenge", ResolutionRate: 50})

	records := trail.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "propose", records[0].Phase)
	assert.False(t, records[0].Timestamp.IsZero(), "timestamp stamped on append")

	// Mutating the returned slice does not touch the trail.
	records[0].Phase = "tampered"
	assert.Equal(t, "propose", trail.Records()[0].Phase)
	assert.Equal(t, 2, trail.Len())
}

func TestStoreArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	trail := NewTrail("session-42")
	trail.Append(RoundRecord{
		RoundNumber: 1,
		Phase:       "challenge",
		Timestamp:   time.Now(),
		Critiques: []*ledger.Critique{{
			ID:       "c-1",
			Severity: ledger.SeverityCritical,
			Category: ledger.CategoryCompliance,
			Status:   ledger.StatusOpen,
			Argument: "missing clause",
		}},
		ResolutionRate: 0,
	})
	trail.Append(RoundRecord{
		RoundNumber:      1,
		Phase:            "defend",
		Timestamp:        time.Now(),
		Responses:        []*ledger.Response{{ID: "r-1", CritiqueID: "c-1", Disposition: ledger.DispositionAccept}},
		ResolutionRate:   100,
		ConsensusReached: true,
	})

	require.NoError(t, store.Archive(context.Background(), trail))

	loaded, err := store.LoadSession(context.Background(), "session-42")
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "challenge", loaded[0].Phase)
	require.Len(t, loaded[0].Critiques, 1)
	assert.Equal(t, ledger.SeverityCritical, loaded[0].Critiques[0].Severity)

	assert.True(t, loaded[1].ConsensusReached)
	assert.Equal(t, 100.0, loaded[1].ResolutionRate)
}

func TestStoreLoadUnknownSession(t *testing.T) {
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	loaded, err := store.LoadSession(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
