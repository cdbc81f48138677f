package record

import "testing"

func TestDecodeSimpleRow(t *testing.T) {
	// header: length byte, then serial types 1 (int8), 13 (text len 0), 15 (text len 1)
	header := []byte{0, byte(1), byte(13), byte(15)}
	header[0] = byte(len(header))
	body := []byte{42}   // int8 42
	body = append(body, []byte("")...)
	body = append(body, []byte("x")...)
	payload := append(append([]byte{}, header...), body...)

	row, err := Decode(payload, 0, -1)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(row) != 3 {
		t.Fatalf("Decode() len = %d, want 3", len(row))
	}
	if row[0].Kind != KindInteger || row[0].Int != 42 {
		t.Errorf("row[0] = %+v, want integer 42", row[0])
	}
	if row[1].Kind != KindText || row[1].Text != "" {
		t.Errorf("row[1] = %+v, want empty text", row[1])
	}
	if row[2].Kind != KindText || row[2].Text != "x" {
		t.Errorf("row[2] = %+v, want text \"x\"", row[2])
	}
}

func TestDecodeNullIsEmptyString(t *testing.T) {
	header := []byte{2, 0} // header length 2, one serial type: 0 (NULL)
	payload := append([]byte{}, header...)
	row, err := Decode(payload, 0, -1)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if row[0].Kind != KindNull {
		t.Errorf("row[0].Kind = %v, want KindNull", row[0].Kind)
	}
	if row[0].String() != "" {
		t.Errorf("row[0].String() = %q, want empty", row[0].String())
	}
}

func TestDecodeRowidAlias(t *testing.T) {
	// A column declared INTEGER PRIMARY KEY stores serial type 0 (no body)
	// but must materialize as the cell's rowid.
	header := []byte{2, 0} // header length 2, serial type 0
	payload := append([]byte{}, header...)

	row, err := Decode(payload, 7, 0)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if row[0].Kind != KindInteger || row[0].Int != 7 {
		t.Errorf("row[0] = %+v, want integer 7 (rowid alias)", row[0])
	}
}

func TestDecodeUnknownSerialType(t *testing.T) {
	header := []byte{2, 6} // serial type 6 (64-bit int) is out of scope
	payload := append([]byte{}, header...)
	payload = append(payload, make([]byte, 8)...)

	_, err := Decode(payload, 0, -1)
	if err != ErrUnknownSerialType {
		t.Errorf("Decode() error = %v, want ErrUnknownSerialType", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	header := []byte{2, byte(15)} // text of length 1, but no body bytes follow
	payload := append([]byte{}, header...)

	_, err := Decode(payload, 0, -1)
	if err != ErrTruncated {
		t.Errorf("Decode() error = %v, want ErrTruncated", err)
	}
}
