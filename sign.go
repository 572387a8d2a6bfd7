package aegis

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/usbwallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/custodian-labs/aegis/types"
)

// Signer is a strategy for producing recovery signatures. Sign receives the
// raw instance digest and is responsible for applying the Ethereum signed
// message prefix; hardware wallets apply it in-device.
type Signer interface {
	Sign(payload []byte) ([]byte, error)
	GetAddress() (common.Address, error)
}

// SignRecovery signs a RecoverySpell's digest with the given strategy and
// returns the signature in the split form ExecuteRecovery consumes.
func SignRecovery(params RecoveryParams, signer Signer) (types.Signature, error) {
	digest, err := params.Digest()
	if err != nil {
		return types.Signature{}, err
	}

	sigB, err := signer.Sign(digest.Bytes())
	if err != nil {
		return types.Signature{}, err
	}

	return types.NewSignatureFromBytes(sigB)
}

var _ Signer = &PrivateKeySigner{}

// PrivateKeySigner signs payloads using an in-memory private key.
type PrivateKeySigner struct {
	pk *ecdsa.PrivateKey
}

// NewPrivateKeySigner creates a new PrivateKeySigner.
func NewPrivateKeySigner(pk *ecdsa.PrivateKey) *PrivateKeySigner {
	return &PrivateKeySigner{pk: pk}
}

// Sign applies the Ethereum signed message prefix and signs the payload.
func (s *PrivateKeySigner) Sign(payload []byte) ([]byte, error) {
	return crypto.Sign(toEthSignedMessageHash(common.BytesToHash(payload)).Bytes(), s.pk)
}

// GetAddress returns the address of the signer.
func (s *PrivateKeySigner) GetAddress() (common.Address, error) {
	return crypto.PubkeyToAddress(s.pk.PublicKey), nil
}

var _ Signer = &LedgerSigner{}

// LedgerSigner signs payloads using the first wallet found on a Ledger.
type LedgerSigner struct {
	derivationPath []uint32
}

// NewLedgerSigner creates a new LedgerSigner.
func NewLedgerSigner(derivationPath []uint32) *LedgerSigner {
	return &LedgerSigner{derivationPath: derivationPath}
}

// Sign signs the payload on the device, which applies the Ethereum signed
// message prefix itself.
func (s *LedgerSigner) Sign(payload []byte) ([]byte, error) {
	wallet, account, err := s.setupLedgerAccount()
	if err != nil {
		return nil, err
	}
	defer wallet.Close()

	return wallet.SignText(account, payload)
}

// GetAddress returns the derived account's address.
func (s *LedgerSigner) GetAddress() (common.Address, error) {
	wallet, account, err := s.setupLedgerAccount()
	if err != nil {
		return common.Address{}, err
	}
	defer wallet.Close()

	return account.Address, nil
}

// setupLedgerAccount loads the wallet and account from the ledger. Caller is
// responsible for closing the wallet.
func (s *LedgerSigner) setupLedgerAccount() (accounts.Wallet, accounts.Account, error) {
	ledgerhub, err := usbwallet.NewLedgerHub()
	if err != nil {
		return nil, accounts.Account{}, fmt.Errorf("failed to open ledger hub: %w", err)
	}

	wallets := ledgerhub.Wallets()
	if len(wallets) == 0 {
		return nil, accounts.Account{}, errors.New("no wallets found")
	}
	wallet := wallets[0]

	if err = wallet.Open(""); err != nil {
		return nil, accounts.Account{}, fmt.Errorf("failed to open wallet: %w", err)
	}

	account, err := wallet.Derive(s.derivationPath, true)
	if err != nil {
		wallet.Close()
		return nil, accounts.Account{}, fmt.Errorf("is your ledger ethereum app open? Failed to derive account: %w derivation path %v", err, s.derivationPath)
	}

	return wallet, account, nil
}
