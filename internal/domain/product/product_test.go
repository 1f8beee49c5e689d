package product

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestFromMap_AllFields(t *testing.T) {
	p, err := FromMap(map[string]any{
		"Product_name":    "Wrap dress",
		"Price_corrected": 49.99,
		"colors":          "red",
		"Pattern":         "Solid",
		"Description":     "Midi wrap dress",
		"Gender":          "womens",
		"image_filename":  "wrap.jpg",
		"product_code":    108775,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Wrap dress" || p.Price != 49.99 || p.Colors != "red" || p.Gender != "womens" {
		t.Errorf("unexpected payload: %+v", p)
	}
	if p.ImageFilename != "wrap.jpg" || p.ImageBase64 != "" {
		t.Errorf("unexpected image fields: %+v", p)
	}
}

func TestFromMap_NumericVariants(t *testing.T) {
	tests := []struct {
		name  string
		price any
		want  float64
	}{
		{"float64", 12.5, 12.5},
		{"int64", int64(30), 30},
		{"string", "19.90", 19.90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FromMap(map[string]any{"Price_corrected": tt.price})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Price != tt.want {
				t.Errorf("expected %v, got %v", tt.want, p.Price)
			}
		})
	}
}

func TestFromMap_TypeMismatch(t *testing.T) {
	if _, err := FromMap(map[string]any{"Product_name": 42}); err == nil {
		t.Error("expected error for non-string name")
	}
	if _, err := FromMap(map[string]any{"Price_corrected": true}); err == nil {
		t.Error("expected error for boolean price")
	}
}

func TestPayload_OmitsMissingOptionalFields(t *testing.T) {
	data, err := json.Marshal(Payload{Name: "Tee", Price: 9.99})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["image_base64"]; ok {
		t.Error("expected image_base64 omitted")
	}
	if m["Product_name"] != "Tee" {
		t.Errorf("expected Product_name key, got %v", m)
	}
}

func TestID_JSON(t *testing.T) {
	num, err := json.Marshal(NumID(42))
	if err != nil || string(num) != "42" {
		t.Errorf("expected 42, got %s (%v)", num, err)
	}
	u, err := json.Marshal(UUIDID(uuid.MustParse("5c56c793-69f3-4fbf-87e6-c4bf54c28c26")))
	if err != nil || string(u) != `"5c56c793-69f3-4fbf-87e6-c4bf54c28c26"` {
		t.Errorf("unexpected uuid json %s (%v)", u, err)
	}

	var id ID
	if err := json.Unmarshal([]byte("7"), &id); err != nil || id.IsUUID() || id.Num() != 7 {
		t.Errorf("expected numeric 7, got %+v (%v)", id, err)
	}
	if err := json.Unmarshal([]byte(`"not-a-uuid"`), &id); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
}

func TestID_Less(t *testing.T) {
	low := UUIDID(uuid.MustParse("0a000000-0000-4000-8000-000000000000"))
	high := UUIDID(uuid.MustParse("b0000000-0000-4000-8000-000000000000"))

	if !NumID(2).Less(NumID(10)) {
		t.Error("expected 2 < 10")
	}
	if !NumID(999).Less(low) {
		t.Error("expected numeric before uuid")
	}
	if !low.Less(high) || high.Less(low) {
		t.Error("expected uuids ordered like their canonical strings")
	}
	if NumID(3).Less(NumID(3)) {
		t.Error("expected equal ids not less")
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		isUUID  bool
		wantErr bool
	}{
		{name: "decimal", in: "15", want: "15"},
		{name: "uuid", in: "5c56c793-69f3-4fbf-87e6-c4bf54c28c26", want: "5c56c793-69f3-4fbf-87e6-c4bf54c28c26", isUUID: true},
		{name: "uppercase uuid is canonicalized", in: "5C56C793-69F3-4FBF-87E6-C4BF54C28C26", want: "5c56c793-69f3-4fbf-87e6-c4bf54c28c26", isUUID: true},
		{name: "arbitrary string", in: "abc", wantErr: true},
		{name: "negative number", in: "-1", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseID(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidID) {
					t.Fatalf("ParseID(%q) error = %v, want ErrInvalidID", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseID(%q) unexpected error: %v", tt.in, err)
			}
			if id.IsUUID() != tt.isUUID || id.String() != tt.want {
				t.Errorf("ParseID(%q) = %v (uuid=%v), want %s (uuid=%v)", tt.in, id, id.IsUUID(), tt.want, tt.isUUID)
			}
		})
	}
}
