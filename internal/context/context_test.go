package context

import (
	"testing"

	"xdl/internal/value"
)

func TestVariableCaseInsensitiveAndScoping(t *testing.T) {
	c := New()
	c.SetVariable("x", value.Long(5))
	if v, ok := c.GetVariable("X"); !ok || v.ToLong() != 5 {
		t.Fatalf("got %#v, %v", v, ok)
	}

	c.PushScope()
	// Assignment with no prior local declares in the innermost scope only
	// when the name isn't already visible; here X is visible from global,
	// so assigning updates the global binding (spec semantics: set walks
	// up the chain first).
	c.SetVariable("x", value.Long(9))
	if v, _ := c.GetVariable("x"); v.ToLong() != 9 {
		t.Fatalf("expected outer x updated, got %#v", v)
	}
	c.SetLocal("y", value.Long(1))
	if _, ok := c.GetVariable("y"); !ok {
		t.Fatal("expected y visible in inner scope")
	}
	c.PopScope()
	if _, ok := c.GetVariable("y"); ok {
		t.Fatal("y should not leak out of its scope")
	}
}

func TestFunctionScopeIsolation(t *testing.T) {
	c := New()
	c.PushScope()
	c.SetVariable("x", value.Long(1))
	prev := c.PushFunctionScope()
	if _, ok := c.GetVariable("x"); ok {
		t.Fatal("function scope should not see caller locals")
	}
	c.SetLocal("x", value.Long(42))
	if v, _ := c.GetVariable("x"); v.ToLong() != 42 {
		t.Fatalf("got %#v", v)
	}
	c.RestoreScope(prev)
	if v, _ := c.GetVariable("x"); v.ToLong() != 1 {
		t.Fatalf("expected restored outer x, got %#v", v)
	}
}

func TestObjectArena(t *testing.T) {
	c := New()
	obj, id := c.NewObject("Widget")
	obj.Fields["COUNT"] = value.Long(3)
	got, ok := c.Object(id)
	if !ok || got.Class != "Widget" || got.Fields["COUNT"].ToLong() != 3 {
		t.Fatalf("got %#v, %v", got, ok)
	}
}

func TestClassRegistryCaseInsensitive(t *testing.T) {
	c := New()
	c.RegisterClass(&Class{Name: "Widget", Methods: map[string]interface{}{"COMPUTE": struct{}{}}})
	cl, ok := c.LookupClass("widget")
	if !ok || cl.Name != "Widget" {
		t.Fatalf("got %#v, %v", cl, ok)
	}
}

func TestDataFrameArena(t *testing.T) {
	c := New()
	id := c.NewDataFrame("fake-df")
	got, ok := c.DataFrame(id)
	if !ok || got != "fake-df" {
		t.Fatalf("got %#v, %v", got, ok)
	}
}
