package vlsirwire

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vlsir/vlsirwire/dynamic"
	"github.com/vlsir/vlsirwire/vlsir"
	"github.com/vlsir/vlsirwire/wire"
)

func newVlsirCodec(t *testing.T) *Codec {
	t.Helper()
	r, err := vlsir.Load()
	if err != nil {
		t.Fatalf("vlsir.Load failed: %v", err)
	}
	return NewWithRegistry(r)
}

func TestCodec_MarshalMapAndParse(t *testing.T) {
	c := newVlsirCodec(t)

	input := map[string]any{
		"name": "inv",
		"ports": []any{
			map[string]any{"signal": "a", "direction": "INPUT"},
			map[string]any{"signal": "y", "direction": "OUTPUT"},
		},
		"signals": []any{
			map[string]any{"name": "a", "width": 1.0}, // JSON numbers are float64
		},
		"instances": []any{
			map[string]any{
				"name":   "n0",
				"module": map[string]any{"external": map[string]any{"domain": "pdk", "name": "nmos"}},
				"parameters": []any{
					map[string]any{"name": "w", "value": map[string]any{"double_value": 1e-6}},
				},
			},
		},
	}
	data, err := c.MarshalMap(input, vlsir.Module)
	if err != nil {
		t.Fatalf("MarshalMap failed: %v", err)
	}

	got, err := c.ParseToMap(data, vlsir.Module)
	if err != nil {
		t.Fatalf("ParseToMap failed: %v", err)
	}
	want := map[string]any{
		"name": "inv",
		"ports": []any{
			map[string]any{"signal": "a"},
			map[string]any{"signal": "y", "direction": int32(1)},
		},
		"signals": []any{
			map[string]any{"name": "a", "width": int64(1)},
		},
		"instances": []any{
			map[string]any{
				"name":   "n0",
				"module": map[string]any{"external": map[string]any{"domain": "pdk", "name": "nmos"}},
				"parameters": []any{
					map[string]any{"name": "w", "value": map[string]any{"double_value": 1e-6}},
				},
			},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseToMap() = %v, want %v", got, want)
	}

	msg, err := c.Parse(data, "Module")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if c.Size(msg) != len(data) {
		t.Errorf("Size() = %d, want %d", c.Size(msg), len(data))
	}
	again, err := c.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(again) != string(data) {
		t.Error("re-encoding a parsed message changed its bytes")
	}
}

func TestCodec_MarshalMapErrors(t *testing.T) {
	c := newVlsirCodec(t)

	tests := []struct {
		name        string
		messageType string
		data        map[string]any
		wantErr     error
		wantText    string
	}{
		{
			name:        "unknown message",
			messageType: "vlsir.circuit.Nope",
			data:        map[string]any{},
			wantText:    "message type not found",
		},
		{
			name:        "unknown field",
			messageType: vlsir.Port,
			data:        map[string]any{"sig": "a"},
			wantErr:     dynamic.ErrUnknownField,
		},
		{
			name:        "two oneof members",
			messageType: vlsir.ParamValue,
			data:        map[string]any{"bool_value": true, "literal": "x"},
			wantText:    "both",
		},
		{
			name:        "int32 overflow",
			messageType: vlsir.Prefixed,
			data:        map[string]any{"prefix": int64(1) << 40},
			wantErr:     wire.ErrIntegerOverflow,
		},
		{
			name:        "fractional integer",
			messageType: vlsir.Signal,
			data:        map[string]any{"width": 1.5},
			wantErr:     dynamic.ErrTypeMismatch,
		},
		{
			name:        "string for double",
			messageType: vlsir.TranInput,
			data:        map[string]any{"tstop": "1e-9"},
			wantErr:     dynamic.ErrTypeMismatch,
		},
		{
			name:        "unknown enum name",
			messageType: vlsir.Port,
			data:        map[string]any{"direction": "SIDEWAYS"},
			wantErr:     dynamic.ErrTypeMismatch,
		},
		{
			name:        "scalar for message",
			messageType: vlsir.Param,
			data:        map[string]any{"value": 3},
			wantErr:     dynamic.ErrTypeMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.MarshalMap(tt.data, tt.messageType)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantText != "" && !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("expected error containing %q, got %v", tt.wantText, err)
			}
		})
	}
}

func TestCodec_MapKeysFromStrings(t *testing.T) {
	dir := t.TempDir()
	content := `syntax = "proto3";
package test;
message Counts {
  map<int64, string> names = 1;
  map<string, double> ic = 2;
}
`
	if err := os.WriteFile(filepath.Join(dir, "counts.proto"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	c := New(dir)
	if err := c.LoadSchemaFromFile("counts.proto"); err != nil {
		t.Fatalf("LoadSchemaFromFile failed: %v", err)
	}

	data, err := c.MarshalMap(map[string]any{
		"names": map[string]any{"7": "seven", "-1": "minus one"},
		"ic":    map[string]float64{"out": 0.5},
	}, "Counts")
	if err != nil {
		t.Fatalf("MarshalMap failed: %v", err)
	}
	msg, err := c.Parse(data, "test.Counts")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if v, _ := msg.Map("names").Get(int64(7)); v != "seven" {
		t.Errorf("names[7] = %v", v)
	}
	if v, _ := msg.Map("names").Get(int64(-1)); v != "minus one" {
		t.Errorf("names[-1] = %v", v)
	}
	if v, _ := msg.Map("ic").Get("out"); v != 0.5 {
		t.Errorf("ic[out] = %v", v)
	}
	if !reflect.DeepEqual(c.ListMessages(), []string{"test.Counts"}) {
		t.Errorf("ListMessages() = %v", c.ListMessages())
	}
}

type TranResult struct {
	AnalysisName string
	Signals      []string
	Data         []float64
	Measurements map[string]float64
}

type Port struct {
	Signal    string
	Direction string
}

type Module struct {
	Name     string
	Ports    []*Port
	Literals []string `proto:"literals"`
	Ignored  int      `proto:"-"`
}

type Width struct {
	Value int `proto:"width"`
}

func TestCodec_UnmarshalToStruct(t *testing.T) {
	c := newVlsirCodec(t)

	t.Run("scalars lists and maps", func(t *testing.T) {
		data, err := c.MarshalMap(map[string]any{
			"analysis_name": "tran",
			"signals":       []string{"out"},
			"data":          []float64{0, 0.5},
			"measurements":  map[string]any{"delay": 2.5},
		}, vlsir.TranResult)
		if err != nil {
			t.Fatalf("MarshalMap failed: %v", err)
		}
		var got TranResult
		if err := c.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		want := TranResult{
			AnalysisName: "tran",
			Signals:      []string{"out"},
			Data:         []float64{0, 0.5},
			Measurements: map[string]float64{"delay": 2.5},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Unmarshal() = %+v, want %+v", got, want)
		}
	})

	t.Run("nested messages and enum names", func(t *testing.T) {
		data, err := c.MarshalMap(map[string]any{
			"name":     "inv",
			"ports":    []any{map[string]any{"signal": "y", "direction": "OUTPUT"}},
			"literals": []any{"* ok"},
		}, vlsir.Module)
		if err != nil {
			t.Fatalf("MarshalMap failed: %v", err)
		}
		got := Module{Ignored: 7}
		if err := c.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if got.Name != "inv" || len(got.Ports) != 1 || *got.Ports[0] != (Port{Signal: "y", Direction: "OUTPUT"}) {
			t.Errorf("Unmarshal() = %+v", got)
		}
		if !reflect.DeepEqual(got.Literals, []string{"* ok"}) || got.Ignored != 7 {
			t.Errorf("Unmarshal() = %+v", got)
		}
	})

	t.Run("explicit type", func(t *testing.T) {
		data, err := c.MarshalMap(map[string]any{"width": int64(8)}, vlsir.Signal)
		if err != nil {
			t.Fatalf("MarshalMap failed: %v", err)
		}
		var got Width
		if err := c.UnmarshalAs(data, vlsir.Signal, &got); err != nil {
			t.Fatalf("UnmarshalAs failed: %v", err)
		}
		if got.Value != 8 {
			t.Errorf("width = %d", got.Value)
		}
	})

	t.Run("invalid targets", func(t *testing.T) {
		var s string
		if err := c.Unmarshal(nil, &s); err == nil {
			t.Error("expected an error for a non-struct target")
		}
		if err := c.Unmarshal(nil, TranResult{}); err == nil {
			t.Error("expected an error for a non-pointer target")
		}
		var w Width
		if err := c.Unmarshal(nil, &w); err == nil {
			t.Error("expected an error for a struct named after no message")
		}
	})
}

func TestCodec_SafeIntegers(t *testing.T) {
	c := newVlsirCodec(t)
	data, err := c.MarshalMap(map[string]any{"width": int64(1) << 60}, vlsir.Signal)
	if err != nil {
		t.Fatalf("MarshalMap failed: %v", err)
	}
	if _, err := c.Parse(data, vlsir.Signal); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	c.UnmarshalOptions.SafeIntegers = true
	if _, err := c.Parse(data, vlsir.Signal); !errors.Is(err, wire.ErrIntegerOverflow) {
		t.Errorf("expected ErrIntegerOverflow, got %v", err)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"ID", "id"},
		{"UserID", "user_id"},
		{"AnalysisName", "analysis_name"},
		{"XMLParser", "xml_parser"},
		{"HTTPSConnection", "https_connection"},
		{"ExtModules", "ext_modules"},
		{"alreadySnake", "already_snake"},
		{"Int64Value", "int64_value"},
	}

	for _, test := range tests {
		result := toSnakeCase(test.input)
		if result != test.expected {
			t.Errorf("toSnakeCase(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

func TestSetFieldValue(t *testing.T) {
	t.Run("int_field", func(t *testing.T) {
		type TestStruct struct {
			ID int
		}
		var s TestStruct
		field := reflect.ValueOf(&s).Elem().Field(0)
		if err := assign(field, int32(123)); err != nil {
			t.Fatalf("assign failed: %v", err)
		}
		if s.ID != 123 {
			t.Errorf("Expected 123, got %d", s.ID)
		}
	})

	t.Run("type_mismatch", func(t *testing.T) {
		type TestStruct struct {
			Name string
		}
		var s TestStruct
		field := reflect.ValueOf(&s).Elem().Field(0)
		if err := assign(field, int32(65)); err == nil {
			t.Errorf("Expected error for type mismatch, got %q", s.Name)
		}
	})

	t.Run("nil_value", func(t *testing.T) {
		type TestStruct struct {
			Name string
		}
		s := TestStruct{Name: "keep"}
		field := reflect.ValueOf(&s).Elem().Field(0)
		if err := setFieldValue(field, nil, nil); err != nil {
			t.Fatalf("setFieldValue failed for nil: %v", err)
		}
		if s.Name != "keep" {
			t.Errorf("Expected 'keep', got '%s'", s.Name)
		}
	})
}
