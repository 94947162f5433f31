package registry

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/verza/zkcreds/pkg/blockchain"
)

// registryMutationGasLimit and registryMutationValueWei are the EVM
// equivalent of the original's "gas 3e14 units, 1-yocto deposit" mutation
// precondition: a fixed gas ceiling and a 1-wei value on every mutating
// call, without which the contract rejects the transaction.
const (
	registryMutationGasLimit = 300_000
	registryMutationValueWei = 1
)

// SchemaRegistryABI is the ABI of the on-chain issuer registry contract:
// an append-only per-issuer schema list and a per-issuer credential-hash
// set. Reads take parallel-array arguments rather than tuple arrays, the
// flattened call shape pkg/blockchain's contract calls expect.
const SchemaRegistryABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "issuer", "type": "address"},
			{"internalType": "uint32", "name": "from", "type": "uint32"},
			{"internalType": "uint32", "name": "limit", "type": "uint32"}
		],
		"name": "getIssuerSchemas",
		"outputs": [{"internalType": "string[]", "name": "", "type": "string[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address[]", "name": "issuers", "type": "address[]"},
			{"internalType": "uint32[]", "name": "schemaIds", "type": "uint32[]"}
		],
		"name": "getSchemas",
		"outputs": [{"internalType": "string[]", "name": "", "type": "string[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "string", "name": "schema", "type": "string"}],
		"name": "addSchema",
		"outputs": [{"internalType": "uint32", "name": "schemaId", "type": "uint32"}],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "issuer", "type": "address"},
			{"internalType": "uint32", "name": "from", "type": "uint32"},
			{"internalType": "uint32", "name": "limit", "type": "uint32"}
		],
		"name": "getCredentials",
		"outputs": [{"internalType": "string[]", "name": "", "type": "string[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address[]", "name": "issuers", "type": "address[]"},
			{"internalType": "string[]", "name": "hashes", "type": "string[]"}
		],
		"name": "checkCredentials",
		"outputs": [{"internalType": "bool[]", "name": "", "type": "bool[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "string[]", "name": "remove", "type": "string[]"},
			{"internalType": "string[]", "name": "add", "type": "string[]"}
		],
		"name": "modifyCredentials",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// EthRegistry adapts Registry onto an EVM contract, built directly on
// pkg/blockchain.Client: an ABI constant, CallContract for reads,
// SendContractTransactionWithValue (zero value) for mutations.
type EthRegistry struct {
	client          *blockchain.Client
	contractAddress common.Address
	contractABI     string
	logger          *zap.Logger
}

// NewEthRegistry builds an EthRegistry against contractAddress, validating
// the ABI eagerly so a malformed constant fails at construction, not on
// first call.
func NewEthRegistry(client *blockchain.Client, contractAddress string, logger *zap.Logger) (*EthRegistry, error) {
	if _, err := abi.JSON(strings.NewReader(SchemaRegistryABI)); err != nil {
		return nil, fmt.Errorf("invalid registry ABI: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EthRegistry{
		client:          client,
		contractAddress: common.HexToAddress(contractAddress),
		contractABI:     SchemaRegistryABI,
		logger:          logger,
	}, nil
}

func normalizePage(page *Page) (from, limit uint32) {
	if page == nil {
		return 0, 0 // 0 limit means "all", per the contract's documented default.
	}
	return page.From, page.Limit
}

// GetIssuerSchemas returns all schema strings an issuer has appended.
func (r *EthRegistry) GetIssuerSchemas(ctx context.Context, issuer string, page *Page) ([]string, error) {
	from, limit := normalizePage(page)
	out, err := r.client.CallContract(ctx, r.contractAddress, r.contractABI, "getIssuerSchemas",
		common.HexToAddress(issuer), from, limit)
	if err != nil {
		return nil, fmt.Errorf("get issuer schemas: %w", err)
	}
	return asStringSlice(out)
}

// GetSchemas resolves (issuer, schema_id) pairs to schema text. The contract
// answers a missing schema with an empty string, so any empty entry is
// reported as ErrSchemaNotFound; a schema registered as the empty string
// cannot be told apart from a missing one here.
func (r *EthRegistry) GetSchemas(ctx context.Context, refs []SchemaRef) ([]string, error) {
	issuers := make([]common.Address, len(refs))
	schemaIDs := make([]uint32, len(refs))
	for i, ref := range refs {
		issuers[i] = common.HexToAddress(ref.Issuer)
		schemaIDs[i] = uint32(ref.SchemaID)
	}

	out, err := r.client.CallContract(ctx, r.contractAddress, r.contractABI, "getSchemas", issuers, schemaIDs)
	if err != nil {
		return nil, fmt.Errorf("get schemas: %w", err)
	}
	schemas, err := asStringSlice(out)
	if err != nil {
		return nil, err
	}
	for i, s := range schemas {
		if s == "" {
			return schemas, fmt.Errorf("%w: issuer=%s schema_id=%d", ErrSchemaNotFound, refs[i].Issuer, refs[i].SchemaID)
		}
	}
	return schemas, nil
}

// AddSchema appends a schema string and returns its assigned id.
func (r *EthRegistry) AddSchema(ctx context.Context, issuer string, schema string) (SchemaID, error) {
	tx, err := r.sendWithDeposit(ctx, "addSchema", schema)
	if err != nil {
		return 0, fmt.Errorf("add schema: %w", err)
	}
	receipt, err := r.client.WaitForTransaction(ctx, tx.Hash())
	if err != nil {
		return 0, fmt.Errorf("add schema: %w", err)
	}
	if receipt.Status != 1 {
		return 0, fmt.Errorf("add schema: transaction reverted")
	}
	// The assigned schema_id is the new append-only list length minus one;
	// re-read it rather than trust a log topic, since the ABI above does
	// not declare an event.
	schemas, err := r.GetIssuerSchemas(ctx, issuer, nil)
	if err != nil {
		return 0, fmt.Errorf("add schema: resolve assigned id: %w", err)
	}
	return SchemaID(len(schemas) - 1), nil
}

// GetCredentials returns all credential hashes committed for issuer.
func (r *EthRegistry) GetCredentials(ctx context.Context, issuer string, page *Page) ([]string, error) {
	from, limit := normalizePage(page)
	out, err := r.client.CallContract(ctx, r.contractAddress, r.contractABI, "getCredentials",
		common.HexToAddress(issuer), from, limit)
	if err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	return asStringSlice(out)
}

// CheckCredentials reports membership for each (issuer, hash) pair.
func (r *EthRegistry) CheckCredentials(ctx context.Context, refs []CredentialRef) ([]bool, error) {
	issuers := make([]common.Address, len(refs))
	hashes := make([]string, len(refs))
	for i, ref := range refs {
		issuers[i] = common.HexToAddress(ref.Issuer)
		hashes[i] = ref.Hash
	}

	out, err := r.client.CallContract(ctx, r.contractAddress, r.contractABI, "checkCredentials", issuers, hashes)
	if err != nil {
		return nil, fmt.Errorf("check credentials: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("check credentials: unexpected result shape")
	}
	bools, ok := out[0].([]bool)
	if !ok {
		return nil, fmt.Errorf("check credentials: unexpected result type %T", out[0])
	}
	return bools, nil
}

// ModifyCredentials removes then adds credential hashes for issuer in a
// single transaction, per the contract's atomic remove-before-add rule.
func (r *EthRegistry) ModifyCredentials(ctx context.Context, issuer string, remove, add []string) error {
	tx, err := r.sendWithDeposit(ctx, "modifyCredentials", remove, add)
	if err != nil {
		return fmt.Errorf("modify credentials: %w", err)
	}
	receipt, err := r.client.WaitForTransaction(ctx, tx.Hash())
	if err != nil {
		return fmt.Errorf("modify credentials: %w", err)
	}
	if receipt.Status != 1 {
		return fmt.Errorf("modify credentials: transaction reverted")
	}
	r.logger.Info("modified registry credentials",
		zap.String("issuer", issuer),
		zap.Int("removed", len(remove)),
		zap.Int("added", len(add)),
	)
	return nil
}

func (r *EthRegistry) sendWithDeposit(ctx context.Context, method string, args ...interface{}) (*types.Transaction, error) {
	return r.client.SendContractTransactionWithValue(ctx, r.contractAddress, r.contractABI, method,
		big.NewInt(registryMutationValueWei), registryMutationGasLimit, args...)
}

func asStringSlice(out []interface{}) ([]string, error) {
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected result shape")
	}
	strs, ok := out[0].([]string)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T", out[0])
	}
	return strs, nil
}
