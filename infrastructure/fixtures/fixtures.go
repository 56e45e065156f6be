// Package fixtures reads and writes transactions as JSON, either a single array or
// one object per line.
package fixtures

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/qubic/go-ledger-simulator/entities"
)

func ReadTransactions(r io.Reader) ([]entities.Transaction, error) {
	br := bufio.NewReader(r)

	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var txs []entities.Transaction
		if err := dec.Decode(&txs); err != nil {
			return nil, fmt.Errorf("decoding transaction array: %w", err)
		}
		return txs, nil
	}

	var txs []entities.Transaction
	for {
		var tx entities.Transaction
		err := dec.Decode(&tx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding transaction %d: %w", len(txs), err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// WriteTransactions writes one transaction per line.
func WriteTransactions(w io.Writer, txs []entities.Transaction) error {
	enc := json.NewEncoder(w)
	for _, tx := range txs {
		if err := enc.Encode(tx); err != nil {
			return fmt.Errorf("encoding transaction %s: %w", tx.ViewingID, err)
		}
	}
	return nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
