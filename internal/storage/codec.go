package storage

import (
	"encoding/json"
	"errors"

	"brandevo/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// EncodeGeneration stamps the current versions onto g before marshalling.
func EncodeGeneration(g model.Generation) ([]byte, error) {
	g.VersionedRecord = model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
	return json.Marshal(g)
}

func DecodeGeneration(data []byte) (model.Generation, error) {
	var generation model.Generation
	if err := json.Unmarshal(data, &generation); err != nil {
		return model.Generation{}, err
	}
	if err := checkVersion(generation.VersionedRecord); err != nil {
		return model.Generation{}, err
	}
	return generation, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
