// Package sequencer decides which stage of a batch can be recorded next.
//
// The decision is a pure function of the set of stage records present on the
// batch. There is no "current stage" counter: a replayed or reordered write
// finds its stage already present and is rejected.
package sequencer

import (
	"go.dedis.ch/coffeetrace/contracts/supplychain/types"
	"golang.org/x/xerrors"
)

// Presence reports whether the record of a stage exists on a batch.
type Presence func(types.Stage) bool

// Next returns the first stage, in the canonical order, whose record is absent,
// or StageComplete when every stage is recorded. A batch without its basic
// details is unknown.
func Next(present Presence) (types.Stage, error) {
	if !present(types.StageBasicDetails) {
		return types.StageBasicDetails, types.ErrUnknownBatch
	}

	next := types.StageComplete

	for _, stage := range types.Stages() {
		if present(stage) {
			if next != types.StageComplete {
				return next, xerrors.Errorf("%v recorded before %v: %w",
					stage, next, types.ErrInconsistent)
			}

			continue
		}

		if next == types.StageComplete {
			next = stage
		}
	}

	return next, nil
}

// Allows returns nil if the stage is the next one to be recorded on the batch,
// otherwise ErrStageOutOfOrder. A stage already recorded is out of order.
func Allows(present Presence, stage types.Stage) error {
	next, err := Next(present)
	if err != nil {
		return err
	}

	if stage != next {
		return xerrors.Errorf("%v while expecting %v: %w", stage, next,
			types.ErrStageOutOfOrder)
	}

	return nil
}

// FromSet returns the presence function of a set of stages.
func FromSet(stages ...types.Stage) Presence {
	set := make(map[types.Stage]struct{}, len(stages))
	for _, stage := range stages {
		set[stage] = struct{}{}
	}

	return func(stage types.Stage) bool {
		_, found := set[stage]
		return found
	}
}
