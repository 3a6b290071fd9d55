package position

import (
	"encoding/json"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Turbo503/EchoNode/internal/model"
)

// LoadState reads the position state from a JSON file. Returns a fresh FLAT
// state if the file doesn't exist.
func LoadState(filePath, symbol string) (model.PositionState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return model.PositionState{Symbol: symbol, Side: model.Flat, Quantity: decimal.Zero}, nil
		}
		return model.PositionState{}, err
	}
	var state model.PositionState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.PositionState{}, err
	}
	if state.Side == "" {
		state.Side = model.Flat
	}
	if state.Symbol == "" {
		state.Symbol = symbol
	}
	return state, nil
}

// SaveState writes the position state to a JSON file.
func SaveState(filePath string, state model.PositionState) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0o644)
}
