package blockchain

import (
	"context"
	"doc-registry/internal/blockchain/settingsfamily"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/hyperledger/sawtooth-sdk-go/protobuf/setting_pb2"
	"google.golang.org/protobuf/proto"
	"gopkg.in/yaml.v3"
)

const stateAPI string = "state"

type familyEntry struct {
	Family  string `yaml:"family"`
	Version string `yaml:"version"`
}

// FamilyEnabled reports whether the validator lists the given transaction
// family among the ones it accepts. A validator without the setting accepts
// every family.
func (c Client) FamilyEnabled(ctx context.Context, family, version string) (bool, error) {
	address := settingsfamily.GetAddress(settingsfamily.TransactionFamiliesSetting)

	response, err := c.sendRequest(ctx, stateAPI+"/"+address, []byte{}, "")
	if err != nil {
		if err == errNotFound {
			return true, nil
		}
		return false, err
	}

	value, err := settingValue(response, settingsfamily.TransactionFamiliesSetting)
	if err != nil {
		return false, err
	}

	var families []familyEntry
	if err := yaml.Unmarshal([]byte(value), &families); err != nil {
		return false, fmt.Errorf("failed to parse %s: %v", settingsfamily.TransactionFamiliesSetting, err)
	}
	for _, entry := range families {
		if entry.Family == family && entry.Version == version {
			return true, nil
		}
	}
	return false, nil
}

// settingValue extracts the value of key from a state API response holding
// a serialized settings entry.
func settingValue(response, key string) (string, error) {
	responseMap := make(map[string]interface{})
	if err := yaml.Unmarshal([]byte(response), &responseMap); err != nil {
		return "", fmt.Errorf("error reading response: %v", err)
	}
	encoded, ok := responseMap["data"].(string)
	if !ok {
		return "", errors.New("state response carries no data")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.New("failed to decode the state entry: " + err.Error())
	}

	setting := &setting_pb2.Setting{}
	if err := proto.Unmarshal(raw, setting); err != nil {
		return "", errors.New("failed to unmarshal the setting: " + err.Error())
	}
	for _, entry := range setting.Entries {
		if entry.Key == key {
			return entry.Value, nil
		}
	}
	return "", errors.New("setting " + key + " not found in its state entry")
}
