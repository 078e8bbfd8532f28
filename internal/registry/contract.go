package registry

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/chainpayroll/payroll/internal/wallet"
)

//go:embed payroll.abi.json
var payrollABI string

var errReverted = errors.New("transaction reverted")

// ParseABI returns the contract interface the client is built against.
func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(payrollABI))
}

// ContractRegistry calls the deployed payroll contract through a JSON-RPC
// node. Transactions are sent with eth_sendTransaction, so the node must hold
// the sender's key (a development chain with unlocked accounts).
type ContractRegistry struct {
	rpc      *rpc.Client
	eth      *ethclient.Client
	abi      abi.ABI
	address  common.Address
	gasLimit uint64
	poll     time.Duration
}

// NewContractRegistry binds the contract at address.
func NewContractRegistry(client *rpc.Client, address string, gasLimit uint64, poll time.Duration) (*ContractRegistry, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}
	parsed, err := ParseABI()
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	if poll <= 0 {
		poll = time.Second
	}
	return &ContractRegistry{
		rpc:      client,
		eth:      ethclient.NewClient(client),
		abi:      parsed,
		address:  common.HexToAddress(address),
		gasLimit: gasLimit,
		poll:     poll,
	}, nil
}

func (r *ContractRegistry) RegisterEmployee(ctx context.Context, from wallet.Address, contentHash string) error {
	return r.send(ctx, from, "registerEmployee", contentHash)
}

func (r *ContractRegistry) RegisterAdmin(ctx context.Context, from wallet.Address, contentHash string) error {
	return r.send(ctx, from, "registerAdmin", contentHash)
}

func (r *ContractRegistry) ApproveEmployee(ctx context.Context, from, employee wallet.Address, contentHash string) error {
	return r.send(ctx, from, "approveEmployee", toCommon(employee), contentHash)
}

func (r *ContractRegistry) RejectEmployee(ctx context.Context, from, employee wallet.Address) error {
	return r.send(ctx, from, "rejectEmployee", toCommon(employee))
}

func (r *ContractRegistry) ApproveAdmin(ctx context.Context, from, admin wallet.Address) error {
	return r.send(ctx, from, "approveAdmin", toCommon(admin))
}

func (r *ContractRegistry) RejectAdmin(ctx context.Context, from, admin wallet.Address) error {
	return r.send(ctx, from, "rejectAdmin", toCommon(admin))
}

func (r *ContractRegistry) AddPayrollRecord(ctx context.Context, from wallet.Address, record PayrollRecord) error {
	return r.send(ctx, from, "addPayrollRecord", new(big.Int).SetUint64(record.ID), record.ContentHash, toCommon(record.Employee))
}

func (r *ContractRegistry) PayrollRecord(ctx context.Context, id uint64) (PayrollRecord, error) {
	out, err := r.call(ctx, "payrollRecords", new(big.Int).SetUint64(id))
	if err != nil {
		return PayrollRecord{}, err
	}
	if len(out) < 2 {
		return PayrollRecord{}, callError("payrollRecords", fmt.Errorf("expected 2 outputs, got %d", len(out)))
	}
	hash, okHash := out[0].(string)
	employee, okEmployee := out[1].(common.Address)
	if !okHash || !okEmployee {
		return PayrollRecord{}, callError("payrollRecords", fmt.Errorf("unexpected output %T, %T", out[0], out[1]))
	}
	rec := PayrollRecord{ID: id, ContentHash: hash}
	if employee != (common.Address{}) {
		rec.Employee = wallet.Address(employee.Hex())
	}
	return rec, nil
}

func (r *ContractRegistry) PendingEmployees(ctx context.Context) ([]wallet.Address, error) {
	return r.addressList(ctx, "getPendingEmployees")
}

func (r *ContractRegistry) ApprovedEmployees(ctx context.Context) ([]wallet.Address, error) {
	return r.addressList(ctx, "getApprovedEmployees")
}

func (r *ContractRegistry) PendingAdmins(ctx context.Context) ([]wallet.Address, error) {
	return r.addressList(ctx, "getPendingAdmins")
}

func (r *ContractRegistry) ApprovedAdmins(ctx context.Context) ([]wallet.Address, error) {
	return r.addressList(ctx, "getApprovedAdmins")
}

func (r *ContractRegistry) Employee(ctx context.Context, addr wallet.Address) (Record, error) {
	return r.record(ctx, "getEmployeeDetails", RoleEmployee, addr)
}

func (r *ContractRegistry) Admin(ctx context.Context, addr wallet.Address) (Record, error) {
	return r.record(ctx, "getAdminDetails", RoleAdmin, addr)
}

func (r *ContractRegistry) IsOwner(ctx context.Context, addr wallet.Address) (bool, error) {
	out, err := r.call(ctx, "verifyOwner", toCommon(addr))
	if err != nil {
		return false, err
	}
	ok, isBool := out[0].(bool)
	if !isBool {
		return false, callError("verifyOwner", fmt.Errorf("unexpected output %T", out[0]))
	}
	return ok, nil
}

func (r *ContractRegistry) record(ctx context.Context, method string, role Role, addr wallet.Address) (Record, error) {
	out, err := r.call(ctx, method, toCommon(addr))
	if err != nil {
		return Record{}, err
	}
	hash, okHash := out[0].(string)
	status, okStatus := out[1].(uint8)
	if !okHash || !okStatus {
		return Record{}, callError(method, fmt.Errorf("unexpected output %T, %T", out[0], out[1]))
	}
	return Record{Address: addr, Role: role, ContentHash: hash, Status: Status(status)}, nil
}

func (r *ContractRegistry) addressList(ctx context.Context, method string) ([]wallet.Address, error) {
	out, err := r.call(ctx, method)
	if err != nil {
		return nil, err
	}
	raw, ok := out[0].([]common.Address)
	if !ok {
		return nil, callError(method, fmt.Errorf("unexpected output %T", out[0]))
	}
	addrs := make([]wallet.Address, 0, len(raw))
	for _, a := range raw {
		addrs = append(addrs, wallet.Address(a.Hex()))
	}
	return addrs, nil
}

func (r *ContractRegistry) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := r.abi.Pack(method, args...)
	if err != nil {
		return nil, callError(method, err)
	}
	res, err := r.eth.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: data}, nil)
	if err != nil {
		return nil, callError(method, err)
	}
	out, err := r.abi.Unpack(method, res)
	if err != nil {
		return nil, callError(method, err)
	}
	if len(out) == 0 {
		return nil, callError(method, errors.New("empty output"))
	}
	return out, nil
}

type sendArgs struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
	Gas  hexutil.Uint64 `json:"gas"`
	Data hexutil.Bytes  `json:"data"`
}

func (r *ContractRegistry) send(ctx context.Context, from wallet.Address, method string, args ...any) error {
	data, err := r.abi.Pack(method, args...)
	if err != nil {
		return callError(method, err)
	}

	var txHash common.Hash
	tx := sendArgs{From: toCommon(from), To: r.address, Gas: hexutil.Uint64(r.gasLimit), Data: data}
	if err := r.rpc.CallContext(ctx, &txHash, "eth_sendTransaction", tx); err != nil {
		return callError(method, err)
	}

	receipt, err := r.waitMined(ctx, txHash)
	if err != nil {
		return callError(method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return callError(method, fmt.Errorf("%w: %s", errReverted, txHash.Hex()))
	}
	return nil
}

func (r *ContractRegistry) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()
	for {
		receipt, err := r.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("fetch receipt %s: %w", txHash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func toCommon(addr wallet.Address) common.Address {
	return common.HexToAddress(addr.String())
}
