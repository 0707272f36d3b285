package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// intentBookABI is the settlement contract surface the solver consumes:
// intent reads, Dutch curve parameters, and fill submission.
const intentBookABI = `[
	{
		"name": "getIntent",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "intentId", "type": "uint256"}],
		"outputs": [{
			"name": "intent",
			"type": "tuple",
			"components": [
				{"name": "id", "type": "uint256"},
				{"name": "intentType", "type": "uint8"},
				{"name": "inputToken", "type": "address"},
				{"name": "outputToken", "type": "address"},
				{"name": "inputDecimals", "type": "uint8"},
				{"name": "outputDecimals", "type": "uint8"},
				{"name": "inputAmount", "type": "uint256"},
				{"name": "minOutputAmount", "type": "uint256"},
				{"name": "hasMinOutput", "type": "bool"},
				{"name": "deadline", "type": "uint256"},
				{"name": "auctionType", "type": "uint8"},
				{"name": "status", "type": "uint8"},
				{"name": "createdAt", "type": "uint256"}
			]
		}]
	},
	{
		"name": "getSchedule",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "intentId", "type": "uint256"}],
		"outputs": [{
			"name": "windows",
			"type": "tuple[]",
			"components": [
				{"name": "periodIndex", "type": "uint256"},
				{"name": "earliestStart", "type": "uint256"},
				{"name": "latestEnd", "type": "uint256"},
				{"name": "amountForPeriod", "type": "uint256"}
			]
		}]
	},
	{
		"name": "getFills",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "intentId", "type": "uint256"}],
		"outputs": [{
			"name": "fills",
			"type": "tuple[]",
			"components": [
				{"name": "periodIndex", "type": "uint256"},
				{"name": "hasPeriod", "type": "bool"},
				{"name": "amountFilled", "type": "uint256"},
				{"name": "amountReceived", "type": "uint256"},
				{"name": "solver", "type": "address"},
				{"name": "executedAt", "type": "uint256"},
				{"name": "reverted", "type": "bool"}
			]
		}]
	},
	{
		"name": "getTotalIntents",
		"type": "function",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"name": "getDutchAuction",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "intentId", "type": "uint256"}],
		"outputs": [
			{"name": "startTime", "type": "uint256"},
			{"name": "endTime", "type": "uint256"},
			{"name": "startPrice", "type": "uint256"},
			{"name": "floorPrice", "type": "uint256"}
		]
	},
	{
		"name": "submitFill",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "intentId", "type": "uint256"},
			{"name": "periodIndex", "type": "uint256"},
			{"name": "hasPeriod", "type": "bool"},
			{"name": "amount", "type": "uint256"},
			{"name": "minOutput", "type": "uint256"}
		],
		"outputs": []
	}
]`

// getIntentBookABI parses the settlement contract ABI.
func getIntentBookABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(intentBookABI))
}
