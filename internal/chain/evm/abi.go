package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// contractABI is the interface of the deployed Oilube provenance contract.
const contractABI = `[
  {"type":"function","name":"Register","stateMutability":"nonpayable",
   "inputs":[{"name":"rAdd","type":"address"},{"name":"role","type":"string"},{"name":"name","type":"string"},{"name":"location","type":"string"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"NewInstance","stateMutability":"nonpayable",
   "inputs":[{"name":"manufacturer","type":"address"},{"name":"productName","type":"string"}],
   "outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"Transfer","stateMutability":"nonpayable",
   "inputs":[{"name":"newHolder","type":"address"},{"name":"productId","type":"bytes32"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"Purchase","stateMutability":"nonpayable",
   "inputs":[{"name":"buyer","type":"address"},{"name":"productId","type":"bytes32"},{"name":"location","type":"string"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"PayToView","stateMutability":"payable",
   "inputs":[{"name":"productId","type":"bytes32"}],
   "outputs":[]},
  {"type":"function","name":"Withdraw","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"CheckRole","stateMutability":"view",
   "inputs":[{"name":"addr","type":"address"}],
   "outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"CheckID","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"CheckPath","stateMutability":"view",
   "inputs":[{"name":"productId","type":"bytes32"}],
   "outputs":[{"name":"","type":"string[]"}]},
  {"type":"function","name":"CheckProduct","stateMutability":"view",
   "inputs":[{"name":"productId","type":"bytes32"}],
   "outputs":[
     {"name":"manufacturerName","type":"string"},
     {"name":"productName","type":"string"},
     {"name":"creationTime","type":"uint256"},
     {"name":"creator","type":"address"},
     {"name":"currentHolder","type":"address"},
     {"name":"isDelivered","type":"bool"},
     {"name":"path","type":"string[]"}]},
  {"type":"function","name":"fee","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"ProductDetail","anonymous":false,
   "inputs":[
     {"name":"productId","type":"bytes32","indexed":true},
     {"name":"manufacturerName","type":"string","indexed":false},
     {"name":"productName","type":"string","indexed":false},
     {"name":"creationTime","type":"uint256","indexed":false},
     {"name":"currentHolder","type":"address","indexed":false},
     {"name":"isDelivered","type":"bool","indexed":false},
     {"name":"path","type":"string[]","indexed":false}]}
]`

const productDetailEvent = "ProductDetail"

func parseContractABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(contractABI))
}
