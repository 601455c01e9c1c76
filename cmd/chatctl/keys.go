package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"messaging-service/internal/e2ee"
)

type keyFile struct {
	UserID     uuid.UUID `json:"user_id"`
	Algorithm  string    `json:"algorithm"`
	PrivateKey string    `json:"private_key"`
}

func saveKeys(path string, userID uuid.UUID, kp *e2ee.KeyPair) error {
	data, err := json.MarshalIndent(keyFile{
		UserID:     userID,
		Algorithm:  e2ee.PublicKeyAlgorithm,
		PrivateKey: kp.PrivateKey(),
	}, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create key dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0600)
}

func loadKeys(path string, userID uuid.UUID) (*e2ee.KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keys: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("decode keys: %w", err)
	}
	if kf.UserID != userID {
		return nil, fmt.Errorf("key file belongs to %s", kf.UserID)
	}
	return e2ee.KeyPairFromPrivate(kf.PrivateKey)
}
