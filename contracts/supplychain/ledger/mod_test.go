package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/coffeetrace/contracts/supplychain/events"
	"go.dedis.ch/coffeetrace/contracts/supplychain/ownership"
	"go.dedis.ch/coffeetrace/contracts/supplychain/types"
	"go.dedis.ch/coffeetrace/contracts/supplychain/users"
	"go.dedis.ch/coffeetrace/core/access"
	"go.dedis.ch/coffeetrace/core/store"
	"go.dedis.ch/coffeetrace/core/store/mem"
	"go.dedis.ch/coffeetrace/core/store/prefixed"
	"go.dedis.ch/coffeetrace/crypto"
	"go.dedis.ch/coffeetrace/internal/testing/fake"
	"golang.org/x/xerrors"
)

var (
	owner     = access.NewAddress([]byte("owner"))
	farmer    = access.NewAddress([]byte("farmer"))
	inspector = access.NewAddress([]byte("inspector"))
	processor = access.NewAddress([]byte("processor"))
	exporter  = access.NewAddress([]byte("exporter"))
	importer  = access.NewAddress([]byte("importer"))
	stranger  = access.NewAddress([]byte("stranger"))
)

var details = types.BasicDetails{
	RegistrationNo: "REG-001",
	FarmerName:     "Juan",
	FarmAddress:    "Finca La Esperanza, Huila",
	ExporterName:   "Cafe Export",
	ImporterName:   "Kaffee Import",
}

func TestAddBasicDetails(t *testing.T) {
	snap := makeSnapshot(t)

	id, err := AddBasicDetails(snap, types.Call{Caller: farmer, Timestamp: 3}, details)
	require.NoError(t, err)

	res, err := GetBasicDetails(snap, id)
	require.NoError(t, err)
	require.Equal(t, details, res)

	n, err := Batches(snap)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	list, err := events.NewLog(snap).Filter(events.Query{Subject: id[:]})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, types.EventPerformCultivation, list[0].Kind)
	require.Equal(t, farmer, list[0].Actor)
	require.Equal(t, uint64(3), list[0].Timestamp)
}

func TestAddBasicDetails_DistinctIDs(t *testing.T) {
	snap := makeSnapshot(t)

	first, err := AddBasicDetails(snap, types.Call{Caller: farmer}, details)
	require.NoError(t, err)

	second, err := AddBasicDetails(snap, types.Call{Caller: farmer}, details)
	require.NoError(t, err)

	require.NotEqual(t, first, second)

	n, err := Batches(snap)
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)

	// Shifting a character between two fields changes the identifier.
	a := makeID(crypto.Sha256, 0, types.BasicDetails{RegistrationNo: "ab", FarmerName: "c"})
	b := makeID(crypto.Sha256, 0, types.BasicDetails{RegistrationNo: "a", FarmerName: "bc"})
	require.NotEqual(t, a, b)
}

func TestAddBasicDetails_Unregistered(t *testing.T) {
	snap := makeSnapshot(t)

	_, err := AddBasicDetails(snap, types.Call{Caller: stranger}, details)
	require.True(t, xerrors.Is(err, types.ErrUnauthorized))

	n, err := Batches(snap)
	require.NoError(t, err)
	require.Equal(t, uint64(0), n)
}

func TestLedger_Init(t *testing.T) {
	snap := makeSnapshot(t)

	algo, err := HashAlgorithm(snap)
	require.NoError(t, err)
	require.Equal(t, crypto.Sha256, algo)

	err = Init(snap, crypto.HashAlgorithm(9))
	require.EqualError(t, err, "unknown hash algorithm 9")

	require.NoError(t, Init(snap, crypto.Sha3_256))

	err = Init(snap, crypto.Sha256)
	require.EqualError(t, err, "hash algorithm already set")

	algo, err = HashAlgorithm(snap)
	require.NoError(t, err)
	require.Equal(t, crypto.Sha3_256, algo)

	id, err := AddBasicDetails(snap, types.Call{Caller: farmer}, details)
	require.NoError(t, err)
	require.Equal(t, makeID(crypto.Sha3_256, 0, details), id)
	require.NotEqual(t, makeID(crypto.Sha256, 0, details), id)

	requireNext(t, snap, id, "Harvester")

	// The algorithm cannot be chosen once a batch exists.
	other := makeSnapshot(t)

	_, err = AddBasicDetails(other, types.Call{Caller: farmer}, details)
	require.NoError(t, err)

	err = Init(other, crypto.Sha3_256)
	require.EqualError(t, err, "ledger has already 1 batches")
}

func TestLedger_InitFailures(t *testing.T) {
	err := Init(fake.NewBadSnapshot(), crypto.Sha256)
	require.EqualError(t, err, fake.Err("failed to read"))

	err = Init(fake.NewBadWriteSnapshot(), crypto.Sha256)
	require.EqualError(t, err, fake.Err("failed to store hash algorithm"))

	snap := makeSnapshot(t)

	err = prefixed.NewSnapshot(Namespace, snap).Set(hashKey, []byte{7})
	require.NoError(t, err)

	_, err = HashAlgorithm(snap)
	require.EqualError(t, err, "invalid hash algorithm 0x07")

	_, err = AddBasicDetails(snap, types.Call{Caller: farmer}, details)
	require.EqualError(t, err, "failed to read hash algorithm: invalid hash algorithm 0x07")
}

func TestAddBasicDetails_Failures(t *testing.T) {
	_, err := AddBasicDetails(fake.NewBadSnapshot(), types.Call{Caller: farmer}, details)
	require.EqualError(t, err, fake.Err("failed to read user: failed to read"))

	snap := fake.NewSnapshot()
	register(t, snap, farmer, types.RoleFarmer)

	err = prefixed.NewSnapshot(Namespace, snap).Set(counterKey, []byte{1})
	require.NoError(t, err)

	_, err = AddBasicDetails(snap, types.Call{Caller: farmer}, details)
	require.EqualError(t, err, "failed to read counter: invalid counter of 1 bytes")

	snap = fake.NewSnapshot()
	register(t, snap, farmer, types.RoleFarmer)
	snap.ErrWrite = fake.GetError()

	_, err = AddBasicDetails(snap, types.Call{Caller: farmer}, details)
	require.EqualError(t, err, fake.Err("failed to store counter"))
}

func TestLedger_Scenario(t *testing.T) {
	snap := makeSnapshot(t)

	id, err := AddBasicDetails(snap, types.Call{Caller: farmer}, details)
	require.NoError(t, err)

	requireNext(t, snap, id, "Harvester")

	harvest := types.HarvesterData{
		CropVariety:     "Arabica",
		TemperatureUsed: "22C",
		Humidity:        "60%",
	}

	err = UpdateHarvesterData(snap, types.Call{Caller: farmer}, id, harvest)
	require.NoError(t, err)

	res, err := GetHarvesterData(snap, id)
	require.NoError(t, err)
	require.Equal(t, harvest, res)

	requireNext(t, snap, id, "FarmInspector")

	inspection := types.FarmInspectorData{
		CoffeeFamily:   "Rubiaceae",
		TypeOfSeed:     "Typica",
		FertilizerUsed: "Organic",
	}

	err = UpdateFarmInspectorData(snap, types.Call{Caller: inspector}, id, inspection)
	require.NoError(t, err)

	requireNext(t, snap, id, "Processor")

	processing := types.ProcessorData{
		Quantity:         1000,
		Temperature:      "210C",
		RoastingDuration: 12,
		InternalBatchNo:  "INT-7",
		PackageDateTime:  1700000000,
		ProcessorName:    "Roaster",
		ProcessorAddress: "Bogota",
	}

	err = UpdateProcessorData(snap, types.Call{Caller: processor}, id, processing)
	require.NoError(t, err)

	requireNext(t, snap, id, "Exporter")

	exportation := types.ExporterData{
		Quantity:           900,
		DestinationAddress: "Hamburg",
		ShipName:           "Maersk",
		ShipNo:             "MK-1",
		DepartureDateTime:  1,
		EstimateDateTime:   1700500000,
		PlantNo:            4,
		ExporterID:         55,
	}

	err = UpdateExporterData(snap, types.Call{Caller: exporter, Timestamp: 1700100000},
		id, exportation)
	require.NoError(t, err)

	requireNext(t, snap, id, "Importer")

	importation := types.ImporterData{
		Quantity:         900,
		ShipName:         "Maersk",
		ShipNo:           "MK-1",
		TransportInfo:    "Truck",
		WarehouseName:    "Depot",
		WarehouseAddress: "Hamburg Port",
		ImporterID:       77,
	}

	err = UpdateImporterData(snap, types.Call{Caller: importer, Timestamp: 1700600000},
		id, importation)
	require.NoError(t, err)

	requireNext(t, snap, id, "Complete")

	inspected, err := GetFarmInspectorData(snap, id)
	require.NoError(t, err)
	require.Equal(t, inspection, inspected)

	processed, err := GetProcessorData(snap, id)
	require.NoError(t, err)
	require.Equal(t, processing, processed)

	exported, err := GetExporterData(snap, id)
	require.NoError(t, err)
	require.Equal(t, uint64(1700100000), exported.DepartureDateTime)
	require.Equal(t, "Hamburg", exported.DestinationAddress)

	imported, err := GetImporterData(snap, id)
	require.NoError(t, err)
	require.Equal(t, uint64(1700600000), imported.ArrivalDateTime)
	require.Equal(t, uint64(77), imported.ImporterID)

	// A sixth write is rejected whatever the stage.
	err = UpdateImporterData(snap, types.Call{Caller: importer}, id, importation)
	require.True(t, xerrors.Is(err, types.ErrStageOutOfOrder))

	err = UpdateHarvesterData(snap, types.Call{Caller: farmer}, id, harvest)
	require.True(t, xerrors.Is(err, types.ErrStageOutOfOrder))

	list, err := events.NewLog(snap).Filter(events.Query{Subject: id[:]})
	require.NoError(t, err)

	kinds := make([]types.EventKind, len(list))
	for i, event := range list {
		kinds[i] = event.Kind
	}

	require.Equal(t, []types.EventKind{
		types.EventPerformCultivation,
		types.EventDoneHarvesting,
		types.EventDoneInspection,
		types.EventDoneProcessing,
		types.EventDoneExporting,
		types.EventDoneImporting,
	}, kinds)
}

func TestLedger_OutOfOrder(t *testing.T) {
	snap := makeSnapshot(t)

	id, err := AddBasicDetails(snap, types.Call{Caller: farmer}, details)
	require.NoError(t, err)

	err = UpdateProcessorData(snap, types.Call{Caller: processor}, id, types.ProcessorData{})
	require.True(t, xerrors.Is(err, types.ErrStageOutOfOrder))

	data, err := GetProcessorData(snap, id)
	require.NoError(t, err)
	require.Equal(t, types.ProcessorData{}, data)

	requireNext(t, snap, id, "Harvester")

	// Monotonic writes: the harvest cannot be written twice.
	err = UpdateHarvesterData(snap, types.Call{Caller: farmer}, id,
		types.HarvesterData{CropVariety: "Arabica"})
	require.NoError(t, err)

	err = UpdateHarvesterData(snap, types.Call{Caller: farmer}, id,
		types.HarvesterData{CropVariety: "Robusta"})
	require.True(t, xerrors.Is(err, types.ErrStageOutOfOrder))

	harvest, err := GetHarvesterData(snap, id)
	require.NoError(t, err)
	require.Equal(t, "Arabica", harvest.CropVariety)
}

func TestLedger_UnknownBatch(t *testing.T) {
	snap := makeSnapshot(t)

	id := types.BatchID{0xde, 0xad}

	err := UpdateHarvesterData(snap, types.Call{Caller: farmer}, id, types.HarvesterData{})
	require.True(t, xerrors.Is(err, types.ErrUnknownBatch))

	_, err = GetNextAction(snap, id)
	require.True(t, xerrors.Is(err, types.ErrUnknownBatch))

	details, err := GetBasicDetails(snap, id)
	require.NoError(t, err)
	require.Equal(t, types.BasicDetails{}, details)
}

func TestLedger_RoleIsolation(t *testing.T) {
	snap := makeSnapshot(t)

	id, err := AddBasicDetails(snap, types.Call{Caller: farmer}, details)
	require.NoError(t, err)

	callers := []access.Address{inspector, processor, exporter, importer, owner, stranger}

	for _, caller := range callers {
		err = UpdateHarvesterData(snap, types.Call{Caller: caller}, id, types.HarvesterData{})
		require.True(t, xerrors.Is(err, types.ErrUnauthorized), caller.String())
	}

	// The role check comes before the resolution of the batch.
	err = UpdateHarvesterData(snap, types.Call{Caller: stranger}, types.BatchID{},
		types.HarvesterData{})
	require.True(t, xerrors.Is(err, types.ErrUnauthorized))

	// An inactive farmer is rejected.
	register(t, snap, farmer, types.RoleFarmer)
	profile, err := users.GetUser(snap, farmer)
	require.NoError(t, err)

	profile.IsActive = false
	require.NoError(t, users.UpdateUser(snap, types.Call{Caller: farmer}, profile))

	err = UpdateHarvesterData(snap, types.Call{Caller: farmer}, id, types.HarvesterData{})
	require.True(t, xerrors.Is(err, types.ErrUnauthorized))

	requireNext(t, snap, id, "Harvester")
}

func TestLedger_RenounceDisablesAdmin(t *testing.T) {
	snap := makeSnapshot(t)

	id, err := AddBasicDetails(snap, types.Call{Caller: farmer}, details)
	require.NoError(t, err)

	require.NoError(t, ownership.RenounceOwnership(snap, types.Call{Caller: owner}))

	// The owner cannot grant itself the farmer role anymore.
	err = users.UpdateUserForAdmin(snap, types.Call{Caller: owner}, stranger, types.User{
		Role:     types.RoleFarmer,
		IsActive: true,
	})
	require.True(t, xerrors.Is(err, types.ErrNotOwner))

	err = UpdateHarvesterData(snap, types.Call{Caller: stranger}, id, types.HarvesterData{})
	require.True(t, xerrors.Is(err, types.ErrUnauthorized))

	// The registered participants keep working.
	err = UpdateHarvesterData(snap, types.Call{Caller: farmer}, id, types.HarvesterData{})
	require.NoError(t, err)
}

func TestGetNextAction_Prefixes(t *testing.T) {
	snap := makeSnapshot(t)

	id, err := AddBasicDetails(snap, types.Call{Caller: farmer}, details)
	require.NoError(t, err)

	writes := []func() error{
		func() error {
			return UpdateHarvesterData(snap, types.Call{Caller: farmer}, id, types.HarvesterData{})
		},
		func() error {
			return UpdateFarmInspectorData(snap, types.Call{Caller: inspector}, id,
				types.FarmInspectorData{})
		},
		func() error {
			return UpdateProcessorData(snap, types.Call{Caller: processor}, id, types.ProcessorData{})
		},
		func() error {
			return UpdateExporterData(snap, types.Call{Caller: exporter}, id, types.ExporterData{})
		},
		func() error {
			return UpdateImporterData(snap, types.Call{Caller: importer}, id, types.ImporterData{})
		},
	}

	stages := types.Stages()

	for i, write := range writes {
		requireNext(t, snap, id, stages[i+1].String())
		require.NoError(t, write())
	}

	requireNext(t, snap, id, types.StageComplete.String())
}

func TestLedger_ReadFailures(t *testing.T) {
	bad := fake.NewBadSnapshot()

	_, err := GetBasicDetails(bad, types.BatchID{})
	require.EqualError(t, err, fake.Err("failed to read record"))

	_, err = GetHarvesterData(bad, types.BatchID{})
	require.EqualError(t, err, fake.Err("failed to read record"))

	_, err = GetFarmInspectorData(bad, types.BatchID{})
	require.EqualError(t, err, fake.Err("failed to read record"))

	_, err = GetProcessorData(bad, types.BatchID{})
	require.EqualError(t, err, fake.Err("failed to read record"))

	_, err = GetExporterData(bad, types.BatchID{})
	require.EqualError(t, err, fake.Err("failed to read record"))

	_, err = GetImporterData(bad, types.BatchID{})
	require.EqualError(t, err, fake.Err("failed to read record"))

	_, err = GetNextAction(bad, types.BatchID{})
	require.EqualError(t, err, fake.Err("failed to read record"))

	_, err = Batches(bad)
	require.EqualError(t, err, fake.Err("failed to read"))

	snap := mem.NewSnapshot()
	err = prefixed.NewSnapshot(Namespace, snap).Set(recordKey(types.BatchID{},
		types.StageHarvester), []byte("{"))
	require.NoError(t, err)

	_, err = GetHarvesterData(snap, types.BatchID{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode record: ")
}

func TestLedger_Inconsistent(t *testing.T) {
	snap := mem.NewSnapshot()

	s := prefixed.NewSnapshot(Namespace, snap)
	require.NoError(t, s.Set(recordKey(types.BatchID{}, types.StageBasicDetails), []byte("{}")))
	require.NoError(t, s.Set(recordKey(types.BatchID{}, types.StageProcessor), []byte("{}")))

	_, err := GetNextAction(snap, types.BatchID{})
	require.True(t, xerrors.Is(err, types.ErrInconsistent))
}

// -----------------------------------------------------------------------------
// Utility functions

func makeSnapshot(t *testing.T) *mem.Layer {
	snap := mem.NewSnapshot()

	require.NoError(t, ownership.Init(snap, owner))

	register(t, snap, farmer, types.RoleFarmer)
	register(t, snap, inspector, types.RoleFarmInspector)
	register(t, snap, processor, types.RoleProcessor)
	register(t, snap, exporter, types.RoleExporter)
	register(t, snap, importer, types.RoleImporter)
	register(t, snap, owner, types.RoleAdmin)

	return snap
}

func register(t *testing.T, snap store.Snapshot, addr access.Address, role types.Role) {
	err := users.UpdateUser(snap, types.Call{Caller: addr}, types.User{
		Name:        role.String(),
		Role:        role,
		IsActive:    true,
		ProfileHash: types.Hash{byte(role)},
	})
	require.NoError(t, err)
}

func requireNext(t *testing.T, snap store.Readable, id types.BatchID, expected string) {
	next, err := GetNextAction(snap, id)
	require.NoError(t, err)
	require.Equal(t, expected, next)
}
