package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const invoiceContractABI = `[
	{
		"inputs": [
			{"name": "amount", "type": "uint256"},
			{"name": "dueDate", "type": "uint256"},
			{"name": "uri", "type": "string"}
		],
		"name": "registerInvoice",
		"outputs": [{"name": "invoiceId", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "invoiceId", "type": "uint256"},
			{"name": "token", "type": "address"}
		],
		"name": "payInvoice",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "invoiceId", "type": "uint256"}],
		"name": "getInvoice",
		"outputs": [
			{"name": "freelancer", "type": "address"},
			{"name": "client", "type": "address"},
			{"name": "amount", "type": "uint256"},
			{"name": "dueDate", "type": "uint256"},
			{"name": "isPaid", "type": "bool"},
			{"name": "uri", "type": "string"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "invoiceId", "type": "uint256"},
			{"indexed": true, "name": "freelancer", "type": "address"},
			{"indexed": false, "name": "amount", "type": "uint256"}
		],
		"name": "InvoiceCreated",
		"type": "event"
	}
]`

const erc20ABI = `[
	{
		"constant": true,
		"inputs": [{"name": "_owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "balance", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "_spender", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

// smart account (ERC-4337 v0.6 SimpleAccount) entry points
const accountABI = `[
	{
		"inputs": [
			{"name": "dest", "type": "address"},
			{"name": "value", "type": "uint256"},
			{"name": "func", "type": "bytes"}
		],
		"name": "execute",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "dest", "type": "address[]"},
			{"name": "func", "type": "bytes[]"}
		],
		"name": "executeBatch",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

var (
	invoiceABI = mustParseABI(invoiceContractABI)
	tokenABI   = mustParseABI(erc20ABI)
	walletABI  = mustParseABI(accountABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("invalid contract abi: " + err.Error())
	}
	return parsed
}
