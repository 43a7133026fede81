// Package ledger implements the registry of the coffee batches.
//
// A batch is made of one record per stage, each stored under its own key. The
// presence of the records is the only state of the batch: the next stage is
// derived from it by the sequencer, and a record is never overwritten once
// written.
//
// Every stage write follows the same steps. The role of the caller is checked,
// then the batch is resolved and the sequencer asked whether the stage is the
// next one. Only then the record is stored and the event appended.
//
// Documentation Last Review: 14.10.2026
//
package ledger

import (
	"encoding/binary"
	"encoding/json"

	"go.dedis.ch/coffeetrace"
	"go.dedis.ch/coffeetrace/contracts/supplychain/events"
	"go.dedis.ch/coffeetrace/contracts/supplychain/sequencer"
	"go.dedis.ch/coffeetrace/contracts/supplychain/types"
	"go.dedis.ch/coffeetrace/contracts/supplychain/users"
	"go.dedis.ch/coffeetrace/core/store"
	"go.dedis.ch/coffeetrace/core/store/prefixed"
	"go.dedis.ch/coffeetrace/crypto"
	"golang.org/x/xerrors"
)

// Namespace is the prefix of the keys of the batches in the store.
const Namespace = "coffeetrace.batches"

var (
	counterKey = []byte("counter")
	hashKey    = []byte("hash")
)

// Init stores the algorithm of the batch identifiers. It can only be done once,
// before the first batch, and a ledger without it uses SHA-256.
func Init(snap store.Snapshot, algo crypto.HashAlgorithm) error {
	if !algo.Valid() {
		return xerrors.Errorf("unknown hash algorithm %d", algo)
	}

	s := prefixed.NewSnapshot(Namespace, snap)

	data, err := s.Get(hashKey)
	if err != nil {
		return xerrors.Errorf("failed to read: %v", err)
	}

	if data != nil {
		return xerrors.New("hash algorithm already set")
	}

	counter, err := Batches(snap)
	if err != nil {
		return xerrors.Errorf("failed to read counter: %v", err)
	}

	if counter > 0 {
		return xerrors.Errorf("ledger has already %d batches", counter)
	}

	err = s.Set(hashKey, []byte{byte(algo)})
	if err != nil {
		return xerrors.Errorf("failed to store hash algorithm: %v", err)
	}

	coffeetrace.Logger.Info().Stringer("hash", algo).Msg("ledger initialized")

	return nil
}

// HashAlgorithm returns the algorithm of the batch identifiers.
func HashAlgorithm(snap store.Readable) (crypto.HashAlgorithm, error) {
	data, err := prefixed.NewReadable(Namespace, snap).Get(hashKey)
	if err != nil {
		return crypto.Sha256, xerrors.Errorf("failed to read: %v", err)
	}

	if data == nil {
		return crypto.Sha256, nil
	}

	if len(data) != 1 || !crypto.HashAlgorithm(data[0]).Valid() {
		return crypto.Sha256, xerrors.Errorf("invalid hash algorithm %#x", data)
	}

	return crypto.HashAlgorithm(data[0]), nil
}

// AddBasicDetails registers a new batch and returns its identifier. Any
// registered participant can do it, whatever its role. The identifier is unique
// even for identical details.
func AddBasicDetails(snap store.Snapshot, call types.Call,
	details types.BasicDetails) (types.BatchID, error) {

	var id types.BatchID

	user, err := users.GetUser(snap, call.Caller)
	if err != nil {
		return id, xerrors.Errorf("failed to read user: %v", err)
	}

	if !user.Role.Valid() {
		return id, xerrors.Errorf("%v is not registered: %w", call.Caller,
			types.ErrUnauthorized)
	}

	counter, err := Batches(snap)
	if err != nil {
		return id, xerrors.Errorf("failed to read counter: %v", err)
	}

	algo, err := HashAlgorithm(snap)
	if err != nil {
		return id, xerrors.Errorf("failed to read hash algorithm: %v", err)
	}

	id = makeID(algo, counter, details)

	s := prefixed.NewSnapshot(Namespace, snap)

	err = s.Set(counterKey, encodeUint64(counter+1))
	if err != nil {
		return id, xerrors.Errorf("failed to store counter: %v", err)
	}

	err = put(snap, call, id, types.StageBasicDetails, details)
	if err != nil {
		return id, err
	}

	return id, nil
}

// UpdateHarvesterData records the harvesting of a batch. The caller must be an
// active farmer.
func UpdateHarvesterData(snap store.Snapshot, call types.Call, id types.BatchID,
	data types.HarvesterData) error {

	return update(snap, call, id, types.StageHarvester, data)
}

// UpdateFarmInspectorData records the inspection of a batch. The caller must be
// an active farm inspector.
func UpdateFarmInspectorData(snap store.Snapshot, call types.Call, id types.BatchID,
	data types.FarmInspectorData) error {

	return update(snap, call, id, types.StageFarmInspector, data)
}

// UpdateProcessorData records the processing of a batch. The caller must be an
// active processor.
func UpdateProcessorData(snap store.Snapshot, call types.Call, id types.BatchID,
	data types.ProcessorData) error {

	return update(snap, call, id, types.StageProcessor, data)
}

// UpdateExporterData records the exportation of a batch. The caller must be an
// active exporter. The departure time is the time of the call.
func UpdateExporterData(snap store.Snapshot, call types.Call, id types.BatchID,
	data types.ExporterData) error {

	data.DepartureDateTime = call.Timestamp

	return update(snap, call, id, types.StageExporter, data)
}

// UpdateImporterData records the importation of a batch. The caller must be an
// active importer. The arrival time is the time of the call.
func UpdateImporterData(snap store.Snapshot, call types.Call, id types.BatchID,
	data types.ImporterData) error {

	data.ArrivalDateTime = call.Timestamp

	return update(snap, call, id, types.StageImporter, data)
}

// GetBasicDetails returns the registration record of the batch, or the zero
// record for an unknown batch.
func GetBasicDetails(snap store.Readable, id types.BatchID) (types.BasicDetails, error) {
	var details types.BasicDetails

	_, err := load(snap, id, types.StageBasicDetails, &details)

	return details, err
}

// GetHarvesterData returns the harvesting record, or the zero record if absent.
func GetHarvesterData(snap store.Readable, id types.BatchID) (types.HarvesterData, error) {
	var data types.HarvesterData

	_, err := load(snap, id, types.StageHarvester, &data)

	return data, err
}

// GetFarmInspectorData returns the inspection record, or the zero record if
// absent.
func GetFarmInspectorData(snap store.Readable, id types.BatchID) (types.FarmInspectorData, error) {
	var data types.FarmInspectorData

	_, err := load(snap, id, types.StageFarmInspector, &data)

	return data, err
}

// GetProcessorData returns the processing record, or the zero record if absent.
func GetProcessorData(snap store.Readable, id types.BatchID) (types.ProcessorData, error) {
	var data types.ProcessorData

	_, err := load(snap, id, types.StageProcessor, &data)

	return data, err
}

// GetExporterData returns the exportation record, or the zero record if absent.
func GetExporterData(snap store.Readable, id types.BatchID) (types.ExporterData, error) {
	var data types.ExporterData

	_, err := load(snap, id, types.StageExporter, &data)

	return data, err
}

// GetImporterData returns the importation record, or the zero record if absent.
func GetImporterData(snap store.Readable, id types.BatchID) (types.ImporterData, error) {
	var data types.ImporterData

	_, err := load(snap, id, types.StageImporter, &data)

	return data, err
}

// GetNextAction returns the name of the next stage of the batch, or "Complete"
// when every stage is recorded.
func GetNextAction(snap store.Readable, id types.BatchID) (string, error) {
	present, err := presence(snap, id)
	if err != nil {
		return "", err
	}

	next, err := sequencer.Next(present)
	if err != nil {
		return "", xerrors.Errorf("batch %v: %w", id, err)
	}

	return next.String(), nil
}

// Batches returns the number of batches registered so far.
func Batches(snap store.Readable) (uint64, error) {
	data, err := prefixed.NewReadable(Namespace, snap).Get(counterKey)
	if err != nil {
		return 0, xerrors.Errorf("failed to read: %v", err)
	}

	if data == nil {
		return 0, nil
	}

	if len(data) != 8 {
		return 0, xerrors.Errorf("invalid counter of %d bytes", len(data))
	}

	return binary.BigEndian.Uint64(data), nil
}

func update(snap store.Snapshot, call types.Call, id types.BatchID,
	stage types.Stage, record interface{}) error {

	err := users.Authorize(snap, call.Caller, stage.Role())
	if err != nil {
		return xerrors.Errorf("%v: %w", stage, err)
	}

	present, err := presence(snap, id)
	if err != nil {
		return err
	}

	if !present(types.StageBasicDetails) {
		return xerrors.Errorf("batch %v: %w", id, types.ErrUnknownBatch)
	}

	err = sequencer.Allows(present, stage)
	if err != nil {
		return xerrors.Errorf("batch %v: %w", id, err)
	}

	return put(snap, call, id, stage, record)
}

func put(snap store.Snapshot, call types.Call, id types.BatchID,
	stage types.Stage, record interface{}) error {

	data, err := json.Marshal(record)
	if err != nil {
		return xerrors.Errorf("failed to encode record: %v", err)
	}

	err = prefixed.NewSnapshot(Namespace, snap).Set(recordKey(id, stage), data)
	if err != nil {
		return xerrors.Errorf("failed to store record: %v", err)
	}

	_, err = events.NewLog(snap).Append(types.Event{
		Kind:      stage.Event(),
		Actor:     call.Caller,
		Subject:   id[:],
		Timestamp: call.Timestamp,
	})
	if err != nil {
		return xerrors.Errorf("failed to append event: %v", err)
	}

	coffeetrace.Logger.Info().
		Str("contract", "ledger").
		Str("batch", id.String()).
		Str("actor", call.Caller.String()).
		Stringer("stage", stage).
		Msg("stage recorded")

	return nil
}

// presence reads which records exist on the batch.
func presence(snap store.Readable, id types.BatchID) (sequencer.Presence, error) {
	r := prefixed.NewReadable(Namespace, snap)

	stages := make([]types.Stage, 0, len(types.Stages()))

	for _, stage := range types.Stages() {
		data, err := r.Get(recordKey(id, stage))
		if err != nil {
			return nil, xerrors.Errorf("failed to read record: %v", err)
		}

		if data != nil {
			stages = append(stages, stage)
		}
	}

	return sequencer.FromSet(stages...), nil
}

func load(snap store.Readable, id types.BatchID, stage types.Stage, v interface{}) (bool, error) {
	data, err := prefixed.NewReadable(Namespace, snap).Get(recordKey(id, stage))
	if err != nil {
		return false, xerrors.Errorf("failed to read record: %v", err)
	}

	if data == nil {
		return false, nil
	}

	err = json.Unmarshal(data, v)
	if err != nil {
		return false, xerrors.Errorf("failed to decode record: %v", err)
	}

	return true, nil
}

func recordKey(id types.BatchID, stage types.Stage) []byte {
	return append(id[:], byte(stage))
}

// makeID hashes the counter together with the details. Each field is prefixed
// with its length so that two different tuples never share an encoding.
func makeID(algo crypto.HashAlgorithm, counter uint64,
	details types.BasicDetails) types.BatchID {

	h := crypto.NewHashFactory(algo).New()
	h.Write(encodeUint64(counter))

	fields := []string{
		details.RegistrationNo,
		details.FarmerName,
		details.FarmAddress,
		details.ExporterName,
		details.ImporterName,
	}

	for _, field := range fields {
		h.Write(encodeUint64(uint64(len(field))))
		h.Write([]byte(field))
	}

	var id types.BatchID
	copy(id[:], h.Sum(nil))

	return id
}

func encodeUint64(v uint64) []byte {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, v)

	return buffer
}
