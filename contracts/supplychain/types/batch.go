package types

// BasicDetails is the registration record of a batch. It exists for every
// batch known to the ledger.
type BasicDetails struct {
	RegistrationNo string
	FarmerName     string
	FarmAddress    string
	ExporterName   string
	ImporterName   string
}

// HarvesterData is the record of the harvesting stage.
type HarvesterData struct {
	CropVariety     string
	TemperatureUsed string
	Humidity        string
}

// FarmInspectorData is the record of the inspection stage.
type FarmInspectorData struct {
	CoffeeFamily   string
	TypeOfSeed     string
	FertilizerUsed string
}

// ProcessorData is the record of the processing stage.
type ProcessorData struct {
	Quantity         uint64
	Temperature      string
	RoastingDuration uint64
	InternalBatchNo  string
	PackageDateTime  uint64
	ProcessorName    string
	ProcessorAddress string
}

// ExporterData is the record of the exportation stage. The departure time is
// the time at which the ledger accepts the record.
type ExporterData struct {
	Quantity           uint64
	DestinationAddress string
	ShipName           string
	ShipNo             string
	DepartureDateTime  uint64
	EstimateDateTime   uint64
	PlantNo            uint64
	ExporterID         uint64
}

// ImporterData is the record of the importation stage. The arrival time is the
// time at which the ledger accepts the record.
type ImporterData struct {
	Quantity         uint64
	ShipName         string
	ShipNo           string
	ArrivalDateTime  uint64
	TransportInfo    string
	WarehouseName    string
	WarehouseAddress string
	ImporterID       uint64
}
