package redistest

import "testing"

func TestKeySlot(t *testing.T) {
	if got := crc16("123456789"); got != 0x31C3 {
		t.Fatalf("crc16 check value: got %#x", got)
	}
	if got := KeySlot("foo"); got != 12182 {
		t.Fatalf("slot of foo: got %d", got)
	}
	if KeySlot("{user1000}.following") != KeySlot("{user1000}.followers") {
		t.Fatal("hashtag keys must share a slot")
	}
	if KeySlot("foo{}{bar}") != KeySlot("foo{}{bar}") || KeySlot("foo{}{bar}") != crc16("foo{}{bar}")%SlotCount {
		t.Fatal("empty hashtag must hash the whole key")
	}
}
