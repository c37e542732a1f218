// Package svm implements the facilitator's signer capability for Solana
// networks. The client submits a partially signed SPL token transfer; this
// signer checks it against the payment requirements, co-signs as fee payer,
// and submits it to the network.
package svm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	x402 "github.com/BranchManager69/dexter-x402"
	"github.com/BranchManager69/dexter-x402/retry"
)

// Token2022ProgramID is the SPL Token-2022 program ID. Transfers through
// either token program are accepted.
var Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

// TransactionPayload is the network-specific payload shape for SVM payments:
// a base64-encoded transaction signed by the client, with the fee payer
// signature slot left empty for this signer to fill.
type TransactionPayload struct {
	Transaction string `json:"transaction"`
}

// Signer holds the fee payer key for one Solana network.
type Signer struct {
	key     solana.PrivateKey
	pub     solana.PublicKey
	network x402.Network
	client  *rpc.Client
	rpcURL  string
	policy  retry.Policy
}

// Option configures a Signer.
type Option func(*Signer) error

// WithSecretKey sets the fee payer private key from a base58 string.
func WithSecretKey(base58Key string) Option {
	return func(s *Signer) error {
		key, err := solana.PrivateKeyFromBase58(base58Key)
		if err != nil {
			return fmt.Errorf("%w: %v", x402.ErrInvalidKey, err)
		}
		s.key = key
		return nil
	}
}

// WithKeygenFile loads the fee payer key from a Solana CLI keygen JSON file.
func WithKeygenFile(path string) Option {
	return func(s *Signer) error {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return fmt.Errorf("%w: %v", x402.ErrInvalidKey, err)
		}
		s.key = key
		return nil
	}
}

// WithRPCEndpoint overrides the network's default RPC endpoint.
func WithRPCEndpoint(url string) Option {
	return func(s *Signer) error {
		s.rpcURL = url
		return nil
	}
}

// WithRetryPolicy overrides the submission retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Signer) error {
		s.policy = p
		return nil
	}
}

// NewSigner creates the signer for a network.
func NewSigner(network x402.Network, opts ...Option) (*Signer, error) {
	s := &Signer{
		network: network,
		rpcURL:  network.RPCURL,
		policy:  retry.DefaultPolicy,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if len(s.key) == 0 {
		return nil, fmt.Errorf("%w: no secret key configured", x402.ErrInvalidKey)
	}
	s.pub = s.key.PublicKey()
	s.client = rpc.New(s.rpcURL)
	return s, nil
}

// Network implements facilitator.Signer.
func (s *Signer) Network() string {
	return s.network.ID
}

// Address returns the fee payer public key; this is the wallet capability
// settlement requires.
func (s *Signer) Address() string {
	return s.pub.String()
}

// Verify checks a payment against the requirements without submitting it.
// Undecodable input is an error; a well-formed payment that fails a check
// comes back as an invalid result with the reason.
func (s *Signer) Verify(ctx context.Context, payment x402.PaymentPayload, reqs x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	tx, err := s.decodeTransaction(payment)
	if err != nil {
		return nil, err
	}

	if reason := s.checkEnvelope(payment); reason != "" {
		return &x402.VerifyResponse{InvalidReason: reason}, nil
	}

	payer, reason, err := s.checkTransfer(tx, reqs)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return &x402.VerifyResponse{InvalidReason: reason, Payer: payer}, nil
	}

	return &x402.VerifyResponse{IsValid: true, Payer: payer}, nil
}

// Settle re-verifies the payment, adds the fee payer signature, and submits
// the transaction. Transient RPC failures are retried; the returned receipt
// carries the transaction signature.
func (s *Signer) Settle(ctx context.Context, payment x402.PaymentPayload, reqs x402.PaymentRequirements) (*x402.SettlementResponse, error) {
	verification, err := s.Verify(ctx, payment, reqs)
	if err != nil {
		return nil, err
	}
	if !verification.IsValid {
		return &x402.SettlementResponse{
			Success:     false,
			ErrorReason: verification.InvalidReason,
			Network:     s.network.ID,
			Payer:       verification.Payer,
		}, nil
	}

	tx, err := s.decodeTransaction(payment)
	if err != nil {
		return nil, err
	}

	if _, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.pub) {
			return &s.key
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("%w: fee payer signing: %v", x402.ErrSettlementFailed, err)
	}

	sig, err := retry.Do(ctx, s.policy, transientRPC, func() (solana.Signature, error) {
		return s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			PreflightCommitment: rpc.CommitmentConfirmed,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrSettlementFailed, err)
	}

	return &x402.SettlementResponse{
		Success:     true,
		Transaction: sig.String(),
		Network:     s.network.ID,
		Payer:       verification.Payer,
	}, nil
}

func (s *Signer) decodeTransaction(payment x402.PaymentPayload) (*solana.Transaction, error) {
	var payload TransactionPayload
	if err := json.Unmarshal(payment.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrInvalidPayload, err)
	}
	if payload.Transaction == "" {
		return nil, fmt.Errorf("%w: missing transaction", x402.ErrInvalidPayload)
	}
	tx, err := solana.TransactionFromBase64(payload.Transaction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrInvalidPayload, err)
	}
	if len(tx.Message.AccountKeys) == 0 {
		return nil, fmt.Errorf("%w: empty transaction", x402.ErrInvalidPayload)
	}
	return tx, nil
}

func (s *Signer) checkEnvelope(payment x402.PaymentPayload) string {
	if payment.X402Version != x402.Version {
		return fmt.Sprintf("unsupported x402 version %d", payment.X402Version)
	}
	if payment.Scheme != x402.SchemeExact {
		return fmt.Sprintf("unsupported scheme %q", payment.Scheme)
	}
	if payment.Network != s.network.ID {
		return fmt.Sprintf("payload network %q does not match %q", payment.Network, s.network.ID)
	}
	return ""
}

// checkTransfer locates the SPL transfer in the transaction and checks it
// against the requirements. A non-empty reason means the payment is invalid.
func (s *Signer) checkTransfer(tx *solana.Transaction, reqs x402.PaymentRequirements) (payer string, reason string, err error) {
	// Fee payer occupies the first account slot.
	if !tx.Message.AccountKeys[0].Equals(s.pub) {
		return "", fmt.Sprintf("fee payer %s does not match facilitator %s", tx.Message.AccountKeys[0], s.pub), nil
	}

	transfer, err := findTransferChecked(tx)
	if err != nil {
		return "", "", err
	}
	if transfer == nil {
		return "", "no token transfer instruction found", nil
	}

	payer = transfer.GetOwnerAccount().PublicKey.String()
	mint := transfer.GetMintAccount().PublicKey

	asset := x402.ResolveAsset(&reqs)
	if asset.Address == x402.UnknownAsset || mint.String() != asset.Address {
		return payer, fmt.Sprintf("transfer mint %s does not match asset %s", mint, asset.Address), nil
	}

	if required := x402.ParseAtomic(reqs.MaxAmountRequired); required != nil {
		if transfer.Amount == nil || !required.IsUint64() || *transfer.Amount != required.Uint64() {
			return payer, "transfer amount does not match required amount", nil
		}
	}

	if reqs.PayTo != "" {
		recipient, err := solana.PublicKeyFromBase58(reqs.PayTo)
		if err != nil {
			return payer, fmt.Sprintf("invalid payTo address %q", reqs.PayTo), nil
		}
		wantDest, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
		if err != nil {
			return "", "", fmt.Errorf("derive recipient token account: %w", err)
		}
		if !transfer.GetDestinationAccount().PublicKey.Equals(wantDest) {
			return payer, "transfer destination does not match payTo", nil
		}
	}

	return payer, "", nil
}

// findTransferChecked walks the transaction instructions for a TransferChecked
// through either SPL token program.
func findTransferChecked(tx *solana.Transaction) (*token.TransferChecked, error) {
	for _, inst := range tx.Message.Instructions {
		prog, err := tx.Message.ResolveProgramIDIndex(inst.ProgramIDIndex)
		if err != nil {
			continue
		}
		if !prog.Equals(solana.TokenProgramID) && !prog.Equals(Token2022ProgramID) {
			continue
		}

		accounts, err := inst.ResolveInstructionAccounts(&tx.Message)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve instruction accounts: %v", x402.ErrInvalidPayload, err)
		}
		decoded, err := token.DecodeInstruction(accounts, inst.Data)
		if err != nil {
			continue
		}
		if transfer, ok := decoded.Impl.(*token.TransferChecked); ok {
			return transfer, nil
		}
	}
	return nil, nil
}

// transientRPC treats everything except context termination as retryable;
// public RPC nodes fail sporadically and a resubmission of the same signed
// transaction is idempotent.
func transientRPC(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
