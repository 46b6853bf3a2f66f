package storage

import "positionScope/internal/model"

// SnapshotSink defines a sink for P&L snapshot rows.
type SnapshotSink interface {
	PutSnapshotBatch(snapshots []model.PositionSnapshot) error
}
