// Command dapputil validates addresses, reads balances and allowances,
// submits ERC20 approvals, switches wallet networks and decodes event logs
// for Ethereum-compatible chains. "dapputil serve" exposes the same helpers
// as a JSON-RPC gateway.
package main

func main() {
	Execute()
}
