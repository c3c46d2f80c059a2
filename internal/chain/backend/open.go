// Package backend opens the configured ledger backend.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emperorhan/oilube/internal/chain"
	"github.com/emperorhan/oilube/internal/chain/evm"
	"github.com/emperorhan/oilube/internal/chain/simulated"
	"github.com/emperorhan/oilube/internal/config"
	"github.com/emperorhan/oilube/internal/domain/model"
	"github.com/emperorhan/oilube/internal/ledger"
)

// Open returns the ledger described by cfg. The simulated backend lives in
// process memory and starts empty.
func Open(ctx context.Context, cfg config.LedgerConfig, logger *slog.Logger) (chain.Ledger, error) {
	switch cfg.Backend {
	case config.LedgerBackendSimulated:
		fee, ok := new(big.Int).SetString(cfg.FeeWei, 10)
		if !ok || fee.Sign() < 0 {
			return nil, fmt.Errorf("invalid simulated fee %q", cfg.FeeWei)
		}
		contract := ledger.NewContract(ledger.Config{
			Owner:  common.HexToAddress(cfg.OwnerAddress),
			Fee:    fee,
			Logger: logger,
		})
		return simulated.New(contract, logger), nil

	case config.LedgerBackendEVM:
		evmCfg := evm.Config{
			RPCURL:          cfg.RPCURL,
			ContractAddress: common.HexToAddress(cfg.ContractAddress),
			Network:         model.Network(cfg.Network),
			RateLimitRPS:    cfg.RateLimitRPS,
			RateLimitBurst:  cfg.RateLimitBurst,
			GasLimit:        cfg.GasLimit,
			PollInterval:    cfg.ReceiptPollInterval(),
		}
		if cfg.ChainID > 0 {
			evmCfg.ChainID = big.NewInt(cfg.ChainID)
		}
		b, err := evm.Dial(ctx, evmCfg, logger)
		if err != nil {
			return nil, err
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unsupported ledger backend %q", cfg.Backend)
	}
}
