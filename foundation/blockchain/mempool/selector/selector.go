// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"
	"sort"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFee  = "fee"
	StrategyFIFO = "fifo"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFee:  feeSelect,
	StrategyFIFO: fifoSelect,
}

// Entry is a pending transaction along with the order it arrived in.
type Entry struct {
	Tx  database.Tx
	Seq uint64
}

// Func defines a function that takes the pending transactions and selects
// howMany of them in an order based on the functions strategy. Receiving -1
// for howMany must return all the transactions in the strategies ordering.
type Func func(entries []Entry, howMany int) []database.Tx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// feeSelect returns the transactions paying the highest fee first. Equal
// fees are returned in the order they arrived.
var feeSelect = func(entries []Entry, howMany int) []database.Tx {
	sort.Sort(byFee(entries))
	return take(entries, howMany)
}

// fifoSelect returns the transactions in the order they arrived.
var fifoSelect = func(entries []Entry, howMany int) []database.Tx {
	sort.Sort(bySeq(entries))
	return take(entries, howMany)
}

// take returns the first howMany transactions of the entries.
func take(entries []Entry, howMany int) []database.Tx {
	if howMany < 0 || howMany > len(entries) {
		howMany = len(entries)
	}

	trans := make([]database.Tx, howMany)
	for i := range howMany {
		trans[i] = entries[i].Tx
	}

	return trans
}

// =============================================================================

// bySeq provides sorting support by the arrival order.
type bySeq []Entry

// Len returns the number of transactions in the list.
func (bs bySeq) Len() int {
	return len(bs)
}

// Less helps to sort the list by arrival in ascending order.
func (bs bySeq) Less(i, j int) bool {
	return bs[i].Seq < bs[j].Seq
}

// Swap moves transactions in the order of the arrival value.
func (bs bySeq) Swap(i, j int) {
	bs[i], bs[j] = bs[j], bs[i]
}

// =============================================================================

// byFee provides sorting support by the transaction fee value.
type byFee []Entry

// Len returns the number of transactions in the list.
func (bf byFee) Len() int {
	return len(bf)
}

// Less helps to sort the list by fee in decending order to pick the
// transactions that provide the best reward. Ties keep the arrival order.
func (bf byFee) Less(i, j int) bool {
	if c := bf[i].Tx.Fee.Cmp(bf[j].Tx.Fee); c != 0 {
		return c > 0
	}
	return bf[i].Seq < bf[j].Seq
}

// Swap moves transactions in the order of the fee value.
func (bf byFee) Swap(i, j int) {
	bf[i], bf[j] = bf[j], bf[i]
}
