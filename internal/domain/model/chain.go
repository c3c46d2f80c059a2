package model

type Network string

const (
	NetworkSimulated Network = "simulated"
	NetworkSepolia   Network = "sepolia"
	NetworkOPSepolia Network = "op-sepolia"
	NetworkMainnet   Network = "mainnet"
)

func (n Network) String() string {
	return string(n)
}

type TxStatus string

const (
	TxStatusSuccess  TxStatus = "SUCCESS"
	TxStatusReverted TxStatus = "REVERTED"
)

// ConfirmationStatus tags a shadow record with whether the ledger accepted
// the corresponding write.
type ConfirmationStatus string

const (
	ConfirmedOnLedger ConfirmationStatus = "confirmed-on-ledger"
	LocalOnlyPending  ConfirmationStatus = "local-only-pending"
)
