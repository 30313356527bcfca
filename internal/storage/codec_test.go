package storage

import (
	"errors"
	"testing"
)

func TestGenerationCodecStampsVersions(t *testing.T) {
	payload, err := EncodeGeneration(testGeneration(3))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeGeneration(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != 3 || decoded.SchemaVersion != CurrentSchemaVersion || decoded.CodecVersion != CurrentCodecVersion {
		t.Fatalf("unexpected decoded generation: %+v", decoded.VersionedRecord)
	}
	if len(decoded.Population) != 2 || !decoded.ActivatedVector.Equal(testGeneration(3).ActivatedVector) {
		t.Fatal("expected population and activated vector to round trip")
	}
}

func TestDecodeGenerationRejectsVersionMismatch(t *testing.T) {
	payload := []byte(`{"schema_version":2,"codec_version":1,"id":0}`)
	if _, err := DecodeGeneration(payload); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got=%v", err)
	}
}
