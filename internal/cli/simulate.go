package cli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LoopringSecondary/protocol2-js/internal/chainstore"
	"github.com/LoopringSecondary/protocol2-js/internal/crypto"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/engine"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

var (
	simulateInputPath string
	simulateOutPath   string
	simulateNow       int64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one settlement batch against a chain snapshot",
	Long: `simulate loads a RingsInput JSON file and a Pebble chain-snapshot
directory, runs SettlementEngine.Simulate against them, and prints the
resulting report as JSON (or writes it, lz4-compressed, to --out).`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simulateInputPath, "input", "", "path to a RingsInput JSON file (required)")
	simulateCmd.Flags().StringVar(&simulateOutPath, "out", "", "write the compressed report here instead of stdout")
	simulateCmd.Flags().Int64Var(&simulateNow, "now", 0, "unix timestamp to validate order windows against")
	simulateCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(simulateCmd)
}

// inputDoc mirrors RingsInput in a JSON-friendly shape: addresses as
// 0x-hex strings, amounts as base-10 strings.
type inputDoc struct {
	Orders []struct {
		Owner                 string `json:"owner"`
		TokenRecipient        string `json:"tokenRecipient"`
		Broker                string `json:"broker"`
		TokenS                string `json:"tokenS"`
		TokenB                string `json:"tokenB"`
		FeeToken              string `json:"feeToken"`
		AmountS               string `json:"amountS"`
		AmountB               string `json:"amountB"`
		FeeAmount             string `json:"feeAmount"`
		TrancheS              string `json:"trancheS"`
		TrancheB              string `json:"trancheB"`
		TrancheFee            string `json:"trancheFee"`
		TokenTypeS            string `json:"tokenTypeS"`
		TokenTypeB            string `json:"tokenTypeB"`
		TokenTypeFee          string `json:"tokenTypeFee"`
		ValidSince            int64  `json:"validSince"`
		ValidUntil            int64  `json:"validUntil"`
		AllOrNone             bool   `json:"allOrNone"`
		FeePercentage         int64  `json:"feePercentage"`
		TokenSFeePercentage   int64  `json:"tokenSFeePercentage"`
		TokenBFeePercentage   int64  `json:"tokenBFeePercentage"`
		WalletSplitPercentage int64  `json:"walletSplitPercentage"`
		WaiveFeePercentage    int64  `json:"waiveFeePercentage"`
	} `json:"orders"`
	Rings             [][]int `json:"rings"`
	FeeRecipient      string  `json:"feeRecipient"`
	Miner             string  `json:"miner"`
	MinerSignature    string  `json:"minerSignature"`
	TransactionOrigin string  `json:"transactionOrigin"`
}

func parseTokenType(s string) types.TokenType {
	if s == "ERC1400" {
		return types.ERC1400
	}
	return types.ERC20
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%q is not a base-10 integer", s)
	}
	return v, nil
}

func parseAddr(s string) (types.Address, error) {
	if s == "" {
		return types.ZeroAddress, nil
	}
	return types.AddressFromHex(s)
}

func decodeInput(raw []byte) (engine.Input, error) {
	var doc inputDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return engine.Input{}, fmt.Errorf("decode input: %w", err)
	}

	orders := make([]*types.OrderInfo, len(doc.Orders))
	for i, d := range doc.Orders {
		owner, err := parseAddr(d.Owner)
		if err != nil {
			return engine.Input{}, fmt.Errorf("order %d owner: %w", i, err)
		}
		tokenRecipient := owner
		if d.TokenRecipient != "" {
			if tokenRecipient, err = parseAddr(d.TokenRecipient); err != nil {
				return engine.Input{}, fmt.Errorf("order %d tokenRecipient: %w", i, err)
			}
		}
		broker, err := parseAddr(d.Broker)
		if err != nil {
			return engine.Input{}, fmt.Errorf("order %d broker: %w", i, err)
		}
		tokenS, err := parseAddr(d.TokenS)
		if err != nil {
			return engine.Input{}, fmt.Errorf("order %d tokenS: %w", i, err)
		}
		tokenB, err := parseAddr(d.TokenB)
		if err != nil {
			return engine.Input{}, fmt.Errorf("order %d tokenB: %w", i, err)
		}
		feeToken, err := parseAddr(d.FeeToken)
		if err != nil {
			return engine.Input{}, fmt.Errorf("order %d feeToken: %w", i, err)
		}
		trancheS, _ := parseAddr(d.TrancheS)
		trancheB, _ := parseAddr(d.TrancheB)
		trancheFee, _ := parseAddr(d.TrancheFee)

		amountS, err := parseAmount(d.AmountS)
		if err != nil {
			return engine.Input{}, fmt.Errorf("order %d amountS: %w", i, err)
		}
		amountB, err := parseAmount(d.AmountB)
		if err != nil {
			return engine.Input{}, fmt.Errorf("order %d amountB: %w", i, err)
		}
		feeAmount, err := parseAmount(d.FeeAmount)
		if err != nil {
			return engine.Input{}, fmt.Errorf("order %d feeAmount: %w", i, err)
		}

		orders[i] = &types.OrderInfo{
			Owner:                 owner,
			TokenRecipient:        tokenRecipient,
			Broker:                broker,
			TokenS:                tokenS,
			TokenB:                tokenB,
			FeeToken:              feeToken,
			AmountS:               amountS,
			AmountB:               amountB,
			FeeAmount:             feeAmount,
			TrancheS:              trancheS,
			TrancheB:              trancheB,
			TrancheFee:            trancheFee,
			TokenTypeS:            parseTokenType(d.TokenTypeS),
			TokenTypeB:            parseTokenType(d.TokenTypeB),
			TokenTypeFee:          parseTokenType(d.TokenTypeFee),
			ValidSince:            d.ValidSince,
			ValidUntil:            d.ValidUntil,
			AllOrNone:             d.AllOrNone,
			FeePercentage:         d.FeePercentage,
			TokenSFeePercentage:   d.TokenSFeePercentage,
			TokenBFeePercentage:   d.TokenBFeePercentage,
			WalletSplitPercentage: d.WalletSplitPercentage,
			WaiveFeePercentage:    d.WaiveFeePercentage,
			FilledAmountS:         new(big.Int),
		}
	}

	feeRecipient, err := parseAddr(doc.FeeRecipient)
	if err != nil {
		return engine.Input{}, fmt.Errorf("feeRecipient: %w", err)
	}
	miner, err := parseAddr(doc.Miner)
	if err != nil {
		return engine.Input{}, fmt.Errorf("miner: %w", err)
	}
	var sig []byte
	if doc.MinerSignature != "" {
		sig, err = hex.DecodeString(strings.TrimPrefix(doc.MinerSignature, "0x"))
		if err != nil {
			return engine.Input{}, fmt.Errorf("minerSignature: %w", err)
		}
	}
	origin, err := parseAddr(doc.TransactionOrigin)
	if err != nil {
		return engine.Input{}, fmt.Errorf("transactionOrigin: %w", err)
	}

	return engine.Input{
		Orders:            orders,
		Rings:             doc.Rings,
		FeeRecipient:       feeRecipient,
		Miner:              miner,
		MinerSignature:     sig,
		TransactionOrigin:  origin,
	}, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(simulateInputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	input, err := decodeInput(raw)
	if err != nil {
		return err
	}

	store, err := chainstore.Open(cfg.ChainStore.Path)
	if err != nil {
		return fmt.Errorf("open chain store: %w", err)
	}
	defer store.Close()

	snap, err := store.Snapshot(cfg.ChainStore.SpendableLRU)
	if err != nil {
		return fmt.Errorf("open chain snapshot: %w", err)
	}
	defer snap.Close()

	eng := engine.New(crypto.OrderHasher{}, crypto.RecoverableVerifier{}, cfg.FeePercentageBase, cfg.RebateRateBasisPoints, input.FeeRecipient)

	report, err := eng.Simulate(context.Background(), input, snap, simulateNow)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	if simulateOutPath == "" {
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		fmt.Println(string(encoded))
		return nil
	}

	blob, err := chainstore.CompressReport(report)
	if err != nil {
		return fmt.Errorf("compress report: %w", err)
	}
	if err := os.WriteFile(simulateOutPath, blob, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
