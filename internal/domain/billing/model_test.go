package billing

import "testing"

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{1.006, 1.01},
		{1.004, 1.0},
		{1499.999, 1500},
		{0.1 + 0.2, 0.3},
	}
	for _, tt := range tests {
		if got := round2(tt.in); got != tt.want {
			t.Errorf("round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRoomItem(t *testing.T) {
	b := &Bill{Items: []*BillItem{
		{Kind: ItemKindManual, ServiceName: "CBC"},
		{Kind: ItemKindRoomAccrual, ServiceName: roomServiceName},
	}}
	item := b.RoomItem()
	if item == nil || item.Kind != ItemKindRoomAccrual {
		t.Fatal("expected the room accrual item")
	}

	none := &Bill{Items: []*BillItem{{Kind: ItemKindManual}}}
	if none.RoomItem() != nil {
		t.Error("expected nil without a room line")
	}
}

func TestValidMethods(t *testing.T) {
	for _, m := range []string{MethodCash, MethodCard, MethodBankTransfer, MethodInsurance, MethodHMO, MethodGCash} {
		if !validMethods[m] {
			t.Errorf("method %q should be valid", m)
		}
	}
	if validMethods["check"] {
		t.Error("unknown method accepted")
	}
}
