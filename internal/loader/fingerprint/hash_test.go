package fingerprint

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func sampleProduct() map[string]any {
	return map[string]any{
		"productId":   "56b23c1f2cbcbe7073ae1234",
		"productName": "Byron Bay Beach Resort",
		"stateName":   "NSW",
		"attributes": []any{
			map[string]any{"attributeTypeId": "ENTITY FAC", "attributeId": "POOL"},
			map[string]any{"attributeTypeId": "ENTITY FAC", "attributeId": "WIFI"},
			map[string]any{"attributeTypeId": "ACCESSIBILITY", "attributeId": "DISASSIST"},
		},
		"tags": []any{"beach", "family", "surf"},
	}
}

func mustHash(t *testing.T, v any) string {
	t.Helper()
	h, err := Hash(v)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return h
}

func TestHash_DeterministicAndHex(t *testing.T) {
	h1 := mustHash(t, sampleProduct())
	h2 := mustHash(t, sampleProduct())
	if h1 != h2 {
		t.Fatalf("same record produced %s and %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h1))
	}
}

func TestHash_ScalarChangeDiffers(t *testing.T) {
	p := sampleProduct()
	p["productName"] = "Byron Bay Beach Resort & Spa"
	if mustHash(t, sampleProduct()) == mustHash(t, p) {
		t.Fatal("changed name must change the hash")
	}
}

func TestHash_EmptyDiffersFromAbsent(t *testing.T) {
	withEmpty := sampleProduct()
	withEmpty["description"] = ""
	if mustHash(t, sampleProduct()) == mustHash(t, withEmpty) {
		t.Fatal("empty field and absent field must hash differently")
	}

	withNull := sampleProduct()
	withNull["description"] = nil
	if mustHash(t, withNull) == mustHash(t, withEmpty) {
		t.Fatal("null and empty string must hash differently")
	}
}

func TestHash_ScalarListOrderMatters(t *testing.T) {
	p := sampleProduct()
	p["tags"] = []any{"surf", "family", "beach"}
	if mustHash(t, sampleProduct()) == mustHash(t, p) {
		t.Fatal("reordering a scalar list must change the hash")
	}
}

func TestHash_MixedListOrderMatters(t *testing.T) {
	a := map[string]any{"items": []any{map[string]any{"a": 1}, 2}}
	b := map[string]any{"items": []any{2, map[string]any{"a": 1}}}
	if mustHash(t, a) == mustHash(t, b) {
		t.Fatal("a list mixing objects and scalars keeps its order")
	}

	objects := map[string]any{"items": []any{map[string]any{"a": 1}, map[string]any{"a": 2}}}
	swapped := map[string]any{"items": []any{map[string]any{"a": 2}, map[string]any{"a": 1}}}
	if mustHash(t, objects) != mustHash(t, swapped) {
		t.Fatal("a list of objects only is order-insensitive")
	}
}

func TestHashJSON_IgnoresFormattingAndKeyOrder(t *testing.T) {
	compact := []byte(`{"b":1,"a":[{"y":2,"x":1}],"price":150.50}`)
	pretty := []byte("{\n  \"a\": [ { \"x\": 1, \"y\": 2 } ],\n  \"price\": 150.50,\n  \"b\": 1\n}")

	h1, err := HashJSON(compact)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := HashJSON(pretty)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatal("whitespace and key order must not affect the hash")
	}

	h3, _ := HashJSON([]byte(`{"b":1,"a":[{"y":2,"x":1}],"price":150.5}`))
	if h3 == h1 {
		t.Fatal("number text is kept verbatim")
	}
}

func TestHashJSON_InvalidInput(t *testing.T) {
	if _, err := HashJSON([]byte(`{"a":`)); err == nil {
		t.Fatal("expected error on truncated document")
	}
}

func TestProperty_HashIgnoresObjectListOrder(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("permuting a list of objects keeps the hash", prop.ForAll(
		func(codes []string, seed int64) bool {
			list := make([]any, len(codes))
			for i, c := range codes {
				list[i] = map[string]any{"attributeId": c, "position": i % 3}
			}
			shuffled := make([]any, len(list))
			copy(shuffled, list)
			rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})

			a, errA := Hash(map[string]any{"id": "x", "attributes": list})
			b, errB := Hash(map[string]any{"attributes": shuffled, "id": "x"})
			return errA == nil && errB == nil && a == b
		},
		gen.SliceOf(gen.AlphaString()),
		gen.Int64(),
	))

	properties.Property("changing one scalar value changes the hash", prop.ForAll(
		func(name string, suffix string) bool {
			a, _ := Hash(map[string]any{"productName": name})
			b, _ := Hash(map[string]any{"productName": name + suffix})
			return a != b
		},
		gen.AnyString(),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
