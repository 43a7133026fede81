package controller

import (
	"encoding/json"
	"fmt"

	"go.dedis.ch/coffeetrace/cli"
	"go.dedis.ch/coffeetrace/contracts/supplychain"
	"go.dedis.ch/coffeetrace/contracts/supplychain/events"
	"go.dedis.ch/coffeetrace/contracts/supplychain/ledger"
	"go.dedis.ch/coffeetrace/contracts/supplychain/types"
	"go.dedis.ch/coffeetrace/core/store"
	"go.dedis.ch/coffeetrace/core/txn"
	"golang.org/x/xerrors"
)

var batchFlag = cli.StringFlag{
	Name:     "batch",
	Usage:    "identifier of the batch",
	Required: true,
}

func (c controller) setBatchCommands(builder cli.Builder) {
	cmd := builder.SetCommand("batch")
	cmd.SetDescription("register and follow the batches")

	sub := cmd.SetSubCommand("add")
	sub.SetDescription("register a new batch and print its identifier")
	sub.SetFlags(
		cli.StringFlag{Name: "registration", Usage: "registration number", Required: true},
		cli.StringFlag{Name: "farmer", Usage: "name of the farmer"},
		cli.StringFlag{Name: "farm-address", Usage: "address of the farm"},
		cli.StringFlag{Name: "exporter", Usage: "name of the exporter"},
		cli.StringFlag{Name: "importer", Usage: "name of the importer"},
	)
	sub.SetAction(c.withNode(c.addBatch))

	sub = cmd.SetSubCommand("harvest")
	sub.SetDescription("record the harvesting of a batch")
	sub.SetFlags(
		batchFlag,
		cli.StringFlag{Name: "variety", Usage: "crop variety"},
		cli.StringFlag{Name: "temperature", Usage: "temperature used"},
		cli.StringFlag{Name: "humidity", Usage: "humidity"},
	)
	sub.SetAction(c.withNode(c.harvest))

	sub = cmd.SetSubCommand("inspect")
	sub.SetDescription("record the inspection of a batch")
	sub.SetFlags(
		batchFlag,
		cli.StringFlag{Name: "family", Usage: "coffee family"},
		cli.StringFlag{Name: "seed", Usage: "type of seed"},
		cli.StringFlag{Name: "fertilizer", Usage: "fertilizer used"},
	)
	sub.SetAction(c.withNode(c.inspect))

	sub = cmd.SetSubCommand("process")
	sub.SetDescription("record the processing of a batch")
	sub.SetFlags(
		batchFlag,
		cli.IntFlag{Name: "quantity", Usage: "quantity"},
		cli.StringFlag{Name: "temperature", Usage: "roasting temperature"},
		cli.IntFlag{Name: "roasting", Usage: "roasting duration"},
		cli.StringFlag{Name: "internal", Usage: "internal batch number"},
		cli.IntFlag{Name: "package-time", Usage: "packaging time in seconds since the epoch"},
		cli.StringFlag{Name: "name", Usage: "name of the processor"},
		cli.StringFlag{Name: "address", Usage: "address of the processor"},
	)
	sub.SetAction(c.withNode(c.process))

	sub = cmd.SetSubCommand("export")
	sub.SetDescription("record the exportation of a batch")
	sub.SetFlags(
		batchFlag,
		cli.IntFlag{Name: "quantity", Usage: "quantity"},
		cli.StringFlag{Name: "destination", Usage: "destination address"},
		cli.StringFlag{Name: "ship", Usage: "name of the ship"},
		cli.StringFlag{Name: "ship-no", Usage: "number of the ship"},
		cli.IntFlag{Name: "estimate", Usage: "estimated arrival in seconds since the epoch"},
		cli.IntFlag{Name: "plant", Usage: "plant number"},
		cli.IntFlag{Name: "exporter-id", Usage: "identifier of the exporter"},
	)
	sub.SetAction(c.withNode(c.export))

	sub = cmd.SetSubCommand("import")
	sub.SetDescription("record the importation of a batch")
	sub.SetFlags(
		batchFlag,
		cli.IntFlag{Name: "quantity", Usage: "quantity"},
		cli.StringFlag{Name: "ship", Usage: "name of the ship"},
		cli.StringFlag{Name: "ship-no", Usage: "number of the ship"},
		cli.StringFlag{Name: "transport", Usage: "transport information"},
		cli.StringFlag{Name: "warehouse", Usage: "name of the warehouse"},
		cli.StringFlag{Name: "warehouse-address", Usage: "address of the warehouse"},
		cli.IntFlag{Name: "importer-id", Usage: "identifier of the importer"},
	)
	sub.SetAction(c.withNode(c.importBatch))

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("print the records of a batch")
	sub.SetFlags(batchFlag)
	sub.SetAction(c.withNode(c.showBatch))

	sub = cmd.SetSubCommand("next")
	sub.SetDescription("print the next stage of a batch")
	sub.SetFlags(batchFlag)
	sub.SetAction(c.withNode(c.nextAction))
}

func (c controller) addBatch(flags cli.Flags, n *node) error {
	me, err := n.identity()
	if err != nil {
		return err
	}

	var from uint64

	err = n.view(func(snap store.Snapshot) error {
		from, err = events.NewLog(snap).Len()
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read events: %v", err)
	}

	details := types.BasicDetails{
		RegistrationNo: flags.String("registration"),
		FarmerName:     flags.String("farmer"),
		FarmAddress:    flags.String("farm-address"),
		ExporterName:   flags.String("exporter"),
		ImporterName:   flags.String("importer"),
	}

	err = c.submitPayload(n, supplychain.CmdAddBasicDetails, details)
	if err != nil {
		return err
	}

	var list []types.Event

	err = n.view(func(snap store.Snapshot) error {
		list, err = events.NewLog(snap).Filter(events.Query{
			Kind:  types.EventPerformCultivation,
			Actor: &me,
			From:  from,
			Limit: 1,
		})
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read events: %v", err)
	}

	if len(list) == 0 {
		return xerrors.New("batch registered but no event found")
	}

	var id types.BatchID
	copy(id[:], list[0].Subject)

	fmt.Fprintln(c.out, id)

	return nil
}

func (c controller) harvest(flags cli.Flags, n *node) error {
	data := types.HarvesterData{
		CropVariety:     flags.String("variety"),
		TemperatureUsed: flags.String("temperature"),
		Humidity:        flags.String("humidity"),
	}

	return c.submitStage(flags, n, types.StageHarvester, data)
}

func (c controller) inspect(flags cli.Flags, n *node) error {
	data := types.FarmInspectorData{
		CoffeeFamily:   flags.String("family"),
		TypeOfSeed:     flags.String("seed"),
		FertilizerUsed: flags.String("fertilizer"),
	}

	return c.submitStage(flags, n, types.StageFarmInspector, data)
}

func (c controller) process(flags cli.Flags, n *node) error {
	ints, err := uintFlags(flags, "quantity", "roasting", "package-time")
	if err != nil {
		return err
	}

	data := types.ProcessorData{
		Quantity:         ints[0],
		Temperature:      flags.String("temperature"),
		RoastingDuration: ints[1],
		InternalBatchNo:  flags.String("internal"),
		PackageDateTime:  ints[2],
		ProcessorName:    flags.String("name"),
		ProcessorAddress: flags.String("address"),
	}

	return c.submitStage(flags, n, types.StageProcessor, data)
}

func (c controller) export(flags cli.Flags, n *node) error {
	ints, err := uintFlags(flags, "quantity", "estimate", "plant", "exporter-id")
	if err != nil {
		return err
	}

	data := types.ExporterData{
		Quantity:           ints[0],
		DestinationAddress: flags.String("destination"),
		ShipName:           flags.String("ship"),
		ShipNo:             flags.String("ship-no"),
		EstimateDateTime:   ints[1],
		PlantNo:            ints[2],
		ExporterID:         ints[3],
	}

	return c.submitStage(flags, n, types.StageExporter, data)
}

func (c controller) importBatch(flags cli.Flags, n *node) error {
	ints, err := uintFlags(flags, "quantity", "importer-id")
	if err != nil {
		return err
	}

	data := types.ImporterData{
		Quantity:         ints[0],
		ShipName:         flags.String("ship"),
		ShipNo:           flags.String("ship-no"),
		TransportInfo:    flags.String("transport"),
		WarehouseName:    flags.String("warehouse"),
		WarehouseAddress: flags.String("warehouse-address"),
		ImporterID:       ints[1],
	}

	return c.submitStage(flags, n, types.StageImporter, data)
}

// batchView is the printed form of a batch.
type batchView struct {
	ID            types.BatchID
	NextAction    string
	BasicDetails  types.BasicDetails
	Harvester     *types.HarvesterData     `json:",omitempty"`
	FarmInspector *types.FarmInspectorData `json:",omitempty"`
	Processor     *types.ProcessorData     `json:",omitempty"`
	Exporter      *types.ExporterData      `json:",omitempty"`
	Importer      *types.ImporterData      `json:",omitempty"`
}

func (c controller) showBatch(flags cli.Flags, n *node) error {
	id, err := types.ParseBatchID(flags.String(batchFlag.Name))
	if err != nil {
		return xerrors.Errorf("invalid batch: %v", err)
	}

	view := batchView{ID: id}

	err = n.view(func(snap store.Snapshot) error {
		view.NextAction, err = ledger.GetNextAction(snap, id)
		if err != nil {
			return err
		}

		view.BasicDetails, err = ledger.GetBasicDetails(snap, id)
		if err != nil {
			return err
		}

		stages := []types.Stage{types.StageHarvester, types.StageFarmInspector,
			types.StageProcessor, types.StageExporter, types.StageImporter}

		for _, stage := range stages {
			if stage.String() == view.NextAction {
				break
			}

			err = fillStage(snap, &view, stage)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return xerrors.Errorf("failed to read batch: %v", err)
	}

	return c.printJSON(view)
}

func fillStage(snap store.Readable, view *batchView, stage types.Stage) error {
	var err error

	switch stage {
	case types.StageHarvester:
		var data types.HarvesterData
		data, err = ledger.GetHarvesterData(snap, view.ID)
		view.Harvester = &data
	case types.StageFarmInspector:
		var data types.FarmInspectorData
		data, err = ledger.GetFarmInspectorData(snap, view.ID)
		view.FarmInspector = &data
	case types.StageProcessor:
		var data types.ProcessorData
		data, err = ledger.GetProcessorData(snap, view.ID)
		view.Processor = &data
	case types.StageExporter:
		var data types.ExporterData
		data, err = ledger.GetExporterData(snap, view.ID)
		view.Exporter = &data
	case types.StageImporter:
		var data types.ImporterData
		data, err = ledger.GetImporterData(snap, view.ID)
		view.Importer = &data
	}

	return err
}

func (c controller) nextAction(flags cli.Flags, n *node) error {
	id, err := types.ParseBatchID(flags.String(batchFlag.Name))
	if err != nil {
		return xerrors.Errorf("invalid batch: %v", err)
	}

	var next string

	err = n.view(func(snap store.Snapshot) error {
		next, err = ledger.GetNextAction(snap, id)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read batch: %v", err)
	}

	fmt.Fprintln(c.out, next)

	return nil
}

func (c controller) submitStage(flags cli.Flags, n *node, stage types.Stage, data interface{}) error {
	id, err := types.ParseBatchID(flags.String(batchFlag.Name))
	if err != nil {
		return xerrors.Errorf("invalid batch: %v", err)
	}

	cmd, _ := supplychain.StageCommand(stage)

	err = c.submitPayload(n, cmd, data,
		txn.Arg{Key: supplychain.BatchArg, Value: []byte(id.String())})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "%v recorded on %v\n", stage, id)

	return nil
}

func (c controller) submitPayload(n *node, cmd supplychain.Command, payload interface{},
	args ...txn.Arg) error {

	data, err := json.Marshal(payload)
	if err != nil {
		return xerrors.Errorf("failed to encode payload: %v", err)
	}

	args = append(args, txn.Arg{Key: supplychain.PayloadArg, Value: data})

	_, err = n.submit(cmd, args...)
	if err != nil {
		return err
	}

	return nil
}

func (c controller) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return xerrors.Errorf("failed to encode: %v", err)
	}

	fmt.Fprintln(c.out, string(data))

	return nil
}

// uintFlags reads the integer flags and refuses the negative values.
func uintFlags(flags cli.Flags, names ...string) ([]uint64, error) {
	res := make([]uint64, len(names))

	for i, name := range names {
		value := flags.Int(name)
		if value < 0 {
			return nil, xerrors.Errorf("flag '%s' must be positive: %d", name, value)
		}

		res[i] = uint64(value)
	}

	return res, nil
}
