// Package supplychain implements the native contract of the coffee supply
// chain. It decodes the arguments of a transaction and dispatches the command
// to the ownership, the user registry or the batch ledger.
//
// The contract never writes anything when a command fails: the execution of a
// refused transaction is discarded by the ordering service along with its
// events.
//
// Documentation Last Review: 14.10.2026
//
package supplychain

import (
	"encoding/json"

	"go.dedis.ch/coffeetrace"
	"go.dedis.ch/coffeetrace/contracts/supplychain/ledger"
	"go.dedis.ch/coffeetrace/contracts/supplychain/ownership"
	"go.dedis.ch/coffeetrace/contracts/supplychain/types"
	"go.dedis.ch/coffeetrace/contracts/supplychain/users"
	"go.dedis.ch/coffeetrace/core/access"
	"go.dedis.ch/coffeetrace/core/execution"
	"go.dedis.ch/coffeetrace/core/execution/native"
	"go.dedis.ch/coffeetrace/core/store"
	"golang.org/x/xerrors"
)

// commands defines the commands of the supply chain contract. This interface
// helps in testing the contract.
type commands interface {
	addBasicDetails(snap store.Snapshot, step execution.Step) error
	updateStage(snap store.Snapshot, step execution.Step, stage types.Stage) error
	updateUser(snap store.Snapshot, step execution.Step) error
	updateUserForAdmin(snap store.Snapshot, step execution.Step) error
	transferOwnership(snap store.Snapshot, step execution.Step) error
	renounceOwnership(snap store.Snapshot, step execution.Step) error
}

const (
	// ContractName is the name of the contract.
	ContractName = "coffeetrace.SupplyChain"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "supplychain:command"

	// BatchArg is the argument's name in the transaction that contains the
	// hexadecimal identifier of the batch.
	BatchArg = "supplychain:batch"

	// UserArg is the argument's name in the transaction that contains the
	// hexadecimal address of the targeted identity.
	UserArg = "supplychain:user"

	// PayloadArg is the argument's name in the transaction that contains the
	// JSON document of the record.
	PayloadArg = "supplychain:payload"
)

// Command defines a type of command for the supply chain contract.
type Command string

const (
	// CmdAddBasicDetails registers a new batch.
	CmdAddBasicDetails Command = "ADD_BASIC_DETAILS"

	// CmdUpdateHarvester records the harvesting of a batch.
	CmdUpdateHarvester Command = "UPDATE_HARVESTER"

	// CmdUpdateInspector records the inspection of a batch.
	CmdUpdateInspector Command = "UPDATE_INSPECTOR"

	// CmdUpdateProcessor records the processing of a batch.
	CmdUpdateProcessor Command = "UPDATE_PROCESSOR"

	// CmdUpdateExporter records the exportation of a batch.
	CmdUpdateExporter Command = "UPDATE_EXPORTER"

	// CmdUpdateImporter records the importation of a batch.
	CmdUpdateImporter Command = "UPDATE_IMPORTER"

	// CmdUpdateUser writes the profile of the sender.
	CmdUpdateUser Command = "UPDATE_USER"

	// CmdUpdateUserForAdmin writes the profile of another identity. Only the
	// owner can use it.
	CmdUpdateUserForAdmin Command = "UPDATE_USER_FOR_ADMIN"

	// CmdTransferOwnership gives the ownership to another identity.
	CmdTransferOwnership Command = "TRANSFER_OWNERSHIP"

	// CmdRenounceOwnership leaves the contract without owner.
	CmdRenounceOwnership Command = "RENOUNCE_OWNERSHIP"
)

var stageCommands = map[Command]types.Stage{
	CmdUpdateHarvester: types.StageHarvester,
	CmdUpdateInspector: types.StageFarmInspector,
	CmdUpdateProcessor: types.StageProcessor,
	CmdUpdateExporter:  types.StageExporter,
	CmdUpdateImporter:  types.StageImporter,
}

// StageCommand returns the command that records the stage.
func StageCommand(stage types.Stage) (Command, bool) {
	for cmd, s := range stageCommands {
		if s == stage {
			return cmd, true
		}
	}

	return "", false
}

// RegisterContract registers the supply chain contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is the native contract of the supply chain.
//
// - implements native.Contract
type Contract struct {
	// cmd provides the commands executions
	cmd commands
}

// NewContract creates a new supply chain contract.
func NewContract() Contract {
	contract := Contract{}
	contract.cmd = chainCommand{}

	return contract
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	var err error

	switch Command(cmd) {
	case CmdAddBasicDetails:
		err = c.cmd.addBasicDetails(snap, step)
	case CmdUpdateHarvester, CmdUpdateInspector, CmdUpdateProcessor,
		CmdUpdateExporter, CmdUpdateImporter:
		err = c.cmd.updateStage(snap, step, stageCommands[Command(cmd)])
	case CmdUpdateUser:
		err = c.cmd.updateUser(snap, step)
	case CmdUpdateUserForAdmin:
		err = c.cmd.updateUserForAdmin(snap, step)
	case CmdTransferOwnership:
		err = c.cmd.transferOwnership(snap, step)
	case CmdRenounceOwnership:
		err = c.cmd.renounceOwnership(snap, step)
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	if err != nil {
		return xerrors.Errorf("failed to %s: %w", cmd, err)
	}

	return nil
}

// chainCommand implements the commands of the supply chain contract.
//
// - implements commands
type chainCommand struct{}

// addBasicDetails implements commands. It performs the ADD_BASIC_DETAILS
// command.
func (chainCommand) addBasicDetails(snap store.Snapshot, step execution.Step) error {
	var details types.BasicDetails

	err := decodePayload(step, &details)
	if err != nil {
		return err
	}

	id, err := ledger.AddBasicDetails(snap, makeCall(step), details)
	if err != nil {
		return err
	}

	coffeetrace.Logger.Debug().
		Str("contract", ContractName).
		Str("batch", id.String()).
		Msg("batch registered")

	return nil
}

// updateStage implements commands. It performs the commands that record a
// stage of a batch.
func (chainCommand) updateStage(snap store.Snapshot, step execution.Step, stage types.Stage) error {
	id, err := types.ParseBatchID(string(step.Current.GetArg(BatchArg)))
	if err != nil {
		return xerrors.Errorf("failed to parse '%s': %v", BatchArg, err)
	}

	call := makeCall(step)

	switch stage {
	case types.StageHarvester:
		var data types.HarvesterData
		err = decodePayload(step, &data)
		if err == nil {
			err = ledger.UpdateHarvesterData(snap, call, id, data)
		}
	case types.StageFarmInspector:
		var data types.FarmInspectorData
		err = decodePayload(step, &data)
		if err == nil {
			err = ledger.UpdateFarmInspectorData(snap, call, id, data)
		}
	case types.StageProcessor:
		var data types.ProcessorData
		err = decodePayload(step, &data)
		if err == nil {
			err = ledger.UpdateProcessorData(snap, call, id, data)
		}
	case types.StageExporter:
		var data types.ExporterData
		err = decodePayload(step, &data)
		if err == nil {
			err = ledger.UpdateExporterData(snap, call, id, data)
		}
	case types.StageImporter:
		var data types.ImporterData
		err = decodePayload(step, &data)
		if err == nil {
			err = ledger.UpdateImporterData(snap, call, id, data)
		}
	default:
		return xerrors.Errorf("stage %v cannot be updated", stage)
	}

	return err
}

// updateUser implements commands. It performs the UPDATE_USER command.
func (chainCommand) updateUser(snap store.Snapshot, step execution.Step) error {
	var profile types.User

	err := decodePayload(step, &profile)
	if err != nil {
		return err
	}

	return users.UpdateUser(snap, makeCall(step), profile)
}

// updateUserForAdmin implements commands. It performs the
// UPDATE_USER_FOR_ADMIN command.
func (chainCommand) updateUserForAdmin(snap store.Snapshot, step execution.Step) error {
	target, err := parseUser(step)
	if err != nil {
		return err
	}

	var profile types.User

	err = decodePayload(step, &profile)
	if err != nil {
		return err
	}

	return users.UpdateUserForAdmin(snap, makeCall(step), target, profile)
}

// transferOwnership implements commands. It performs the TRANSFER_OWNERSHIP
// command.
func (chainCommand) transferOwnership(snap store.Snapshot, step execution.Step) error {
	target, err := parseUser(step)
	if err != nil {
		return err
	}

	return ownership.TransferOwnership(snap, makeCall(step), target)
}

// renounceOwnership implements commands. It performs the RENOUNCE_OWNERSHIP
// command.
func (chainCommand) renounceOwnership(snap store.Snapshot, step execution.Step) error {
	return ownership.RenounceOwnership(snap, makeCall(step))
}

func makeCall(step execution.Step) types.Call {
	return types.Call{
		Caller:    step.Current.GetIdentity(),
		Timestamp: step.Timestamp,
	}
}

func parseUser(step execution.Step) (access.Address, error) {
	addr, err := access.ParseAddress(string(step.Current.GetArg(UserArg)))
	if err != nil {
		return addr, xerrors.Errorf("failed to parse '%s': %v", UserArg, err)
	}

	return addr, nil
}

func decodePayload(step execution.Step, v interface{}) error {
	payload := step.Current.GetArg(PayloadArg)
	if len(payload) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", PayloadArg)
	}

	err := json.Unmarshal(payload, v)
	if err != nil {
		return xerrors.Errorf("failed to decode payload: %w", err)
	}

	return nil
}
