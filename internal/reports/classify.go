package reports

import "github.com/gasflow-erp/gasflow/internal/inventory"

// classify assigns one ledger row to the movement counters. A move writes
// three rows: a decrease leg, an increase leg and a combined summary row;
// counting all three would triple every move, so each transaction type
// counts exactly one row shape and ignores the rest.
func classify(txn inventory.Transaction, m *Movement) {
	switch txn.Type {
	case inventory.TxnGRN, inventory.TxnInvoice, inventory.TxnOpening:
		// receipts increase single cells, no legs to dedupe
		if !txn.IsIncrease() {
			return
		}
		switch txn.ToState {
		case inventory.StateFull:
			m.ReceivedFull += txn.Qty
		case inventory.StateEmpty:
			m.ReceivedEmpty += txn.Qty
		case inventory.StateDefective:
			m.ReceivedDefective += txn.Qty
		}
	case inventory.TxnAssign:
		// assigns are always moves; the summary row carries both sides
		if txn.IsMoveSummary() {
			m.LoadAssigned += txn.Qty
		}
	case inventory.TxnDelivery:
		if txn.IsDecrease() {
			m.DeliveredFull += txn.Qty
		}
	case inventory.TxnReturn:
		// empties come back as plain increases; unsold fulls come back as
		// moves whose increase leg lands on a FULL cell
		if !txn.IsIncrease() {
			return
		}
		switch txn.ToState {
		case inventory.StateEmpty:
			m.EmptyCollected += txn.Qty
		case inventory.StateFull:
			m.UnsoldFull += txn.Qty
		}
	case inventory.TxnAdjustment:
		if txn.IsIncrease() && txn.ToState == inventory.StateDefective {
			m.DefectiveMoved += txn.Qty
		}
	}
}

// tallyMovements folds ledger rows into per-product movement counters.
func tallyMovements(txns []inventory.Transaction) map[int64]*Movement {
	byProduct := map[int64]*Movement{}
	for _, txn := range txns {
		m, ok := byProduct[txn.ProductID]
		if !ok {
			m = &Movement{}
			byProduct[txn.ProductID] = m
		}
		classify(txn, m)
	}
	return byProduct
}

// positionsFromCells folds stock cells into per-product state totals across
// all buckets.
func positionsFromCells(cells []inventory.StockCell) map[int64]StockPosition {
	byProduct := map[int64]StockPosition{}
	for _, cell := range cells {
		pos := byProduct[cell.ProductID]
		switch cell.State {
		case inventory.StateFull:
			pos.Full += cell.Qty
		case inventory.StateEmpty:
			pos.Empty += cell.Qty
		case inventory.StateDefective:
			pos.Defective += cell.Qty
		}
		byProduct[cell.ProductID] = pos
	}
	return byProduct
}
