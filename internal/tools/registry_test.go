package tools

import (
	"context"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if reg.Count() != 0 {
		t.Errorf("new registry should be empty, got %d tools", reg.Count())
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{
		Name:        "test_tool",
		Description: "A test tool",
		Category:    CategoryCore,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return "success", nil
		},
		Schema: ToolSchema{Required: []string{}},
	}

	if err := reg.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got := reg.Get("test_tool")
	if got == nil {
		t.Fatal("Get returned nil for registered tool")
	}
	if got.Name != "test_tool" {
		t.Errorf("got name %q, want %q", got.Name, "test_tool")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{
		Name:     "dupe",
		Category: CategoryCore,
		Execute:  func(ctx context.Context, args map[string]any) (any, error) { return "", nil },
	}

	if err := reg.Register(tool); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	if err := reg.Register(tool); err == nil {
		t.Fatal("expected error for duplicate registration")
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name    string
		tool    *Tool
		wantErr error
	}{
		{
			name:    "empty name",
			tool:    &Tool{Name: "", Execute: func(ctx context.Context, args map[string]any) (any, error) { return "", nil }},
			wantErr: ErrToolNameEmpty,
		},
		{
			name:    "nil execute",
			tool:    &Tool{Name: "test", Execute: nil},
			wantErr: ErrToolExecuteNil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := reg.Register(tt.tool); err == nil {
				t.Errorf("expected error %v, got nil", tt.wantErr)
			}
		})
	}
}

func TestGetByCategory(t *testing.T) {
	reg := NewRegistry()

	nop := func(ctx context.Context, args map[string]any) (any, error) { return "", nil }
	toolList := []*Tool{
		{Name: "search1", Category: CategorySearch, Priority: 80, Execute: nop},
		{Name: "search2", Category: CategorySearch, Priority: 60, Execute: nop},
		{Name: "file1", Category: CategoryFile, Priority: 50, Execute: nop},
	}

	for _, tool := range toolList {
		reg.MustRegister(tool)
	}

	search := reg.GetByCategory(CategorySearch)
	if len(search) != 2 {
		t.Errorf("expected 2 search tools, got %d", len(search))
	}
	if search[0].Name != "search1" {
		t.Errorf("expected search1 first (priority 80), got %s", search[0].Name)
	}
}

func TestExecute(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{
		Name:     "echo",
		Category: CategoryCore,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			msg, _ := args["message"].(string)
			return "Echo: " + msg, nil
		},
		Schema: ToolSchema{
			Required:   []string{"message"},
			Properties: map[string]Property{"message": {Type: "string"}},
		},
	}

	reg.MustRegister(tool)

	result, err := reg.Execute(context.Background(), "req-1", "echo", map[string]any{"message": "hello"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Result != "Echo: hello" {
		t.Errorf("got result %v, want %q", result.Result, "Echo: hello")
	}
	if !result.IsSuccess() {
		t.Error("expected IsSuccess to be true")
	}

	if _, err := reg.Execute(context.Background(), "req-1", "echo", map[string]any{}); err == nil {
		t.Error("expected error for missing required arg")
	}

	if _, err := reg.Execute(context.Background(), "req-1", "nonexistent", map[string]any{}); err == nil {
		t.Error("expected error for nonexistent tool")
	}
}

func TestCategories(t *testing.T) {
	reg := NewRegistry()

	nop := func(ctx context.Context, args map[string]any) (any, error) { return "", nil }
	reg.MustRegister(&Tool{Name: "context7", Category: CategorySearch, Execute: nop})
	reg.MustRegister(&Tool{Name: "file_write", Category: CategoryFile, Execute: nop})

	cats := reg.Categories()
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d: %v", len(cats), cats)
	}
}

func TestGlobalRegistry(t *testing.T) {
	globalRegistry = NewRegistry()

	tool := &Tool{
		Name:     "global_test",
		Category: CategoryCore,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return "global", nil
		},
	}

	if err := Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got := Get("global_test")
	if got == nil {
		t.Fatal("Get returned nil for globally registered tool")
	}

	result, err := Execute(context.Background(), "req-1", "global_test", map[string]any{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Result != "global" {
		t.Errorf("got result %v, want %q", result.Result, "global")
	}
}
