package types

// Stage is one of the sequential phases of a batch.
type Stage uint8

const (
	// StageBasicDetails is the registration of the batch.
	StageBasicDetails Stage = iota

	// StageHarvester is the harvesting, recorded by a farmer.
	StageHarvester

	// StageFarmInspector is the inspection, recorded by a farm inspector.
	StageFarmInspector

	// StageProcessor is the processing, recorded by a processor.
	StageProcessor

	// StageExporter is the exportation, recorded by an exporter.
	StageExporter

	// StageImporter is the importation, recorded by an importer.
	StageImporter

	// StageComplete marks a batch with every stage recorded. It is never
	// written.
	StageComplete
)

var stageNames = []string{
	"BasicDetails",
	"Harvester",
	"FarmInspector",
	"Processor",
	"Exporter",
	"Importer",
	"Complete",
}

// Stages returns the stages that hold a record, in the canonical order.
func Stages() []Stage {
	return []Stage{StageBasicDetails, StageHarvester, StageFarmInspector,
		StageProcessor, StageExporter, StageImporter}
}

// String implements fmt.Stringer.
func (s Stage) String() string {
	if int(s) >= len(stageNames) {
		return "Unknown"
	}

	return stageNames[s]
}

// Role returns the role allowed to record the stage. Registration and the
// complete marker have no role.
func (s Stage) Role() Role {
	switch s {
	case StageHarvester:
		return RoleFarmer
	case StageFarmInspector:
		return RoleFarmInspector
	case StageProcessor:
		return RoleProcessor
	case StageExporter:
		return RoleExporter
	case StageImporter:
		return RoleImporter
	default:
		return RoleNone
	}
}

// Event returns the kind of event emitted when the stage is recorded.
func (s Stage) Event() EventKind {
	switch s {
	case StageBasicDetails:
		return EventPerformCultivation
	case StageHarvester:
		return EventDoneHarvesting
	case StageFarmInspector:
		return EventDoneInspection
	case StageProcessor:
		return EventDoneProcessing
	case StageExporter:
		return EventDoneExporting
	case StageImporter:
		return EventDoneImporting
	default:
		return ""
	}
}
