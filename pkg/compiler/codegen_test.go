package compiler

import (
	"strings"
	"testing"
)

func generate(t *testing.T, src string, cfg Config) string {
	t.Helper()
	result := Compile(src, "test.plike", cfg, nil)
	if result.Report.HasErrors() {
		t.Fatalf("unexpected errors compiling %q: %v", src, result.Report.All())
	}
	return result.Output
}

func TestGenerateSimpleAssignment(t *testing.T) {
	src := `procedure p()
var x: integer;
begin
x := 1
end p
`
	out := generate(t, src, DefaultConfig())
	if !strings.Contains(out, "void p() {") {
		t.Errorf("expected a void p() signature, got:\n%s", out)
	}
	if !strings.Contains(out, "int x;") {
		t.Errorf("expected 'int x;' local declaration, got:\n%s", out)
	}
	if !strings.Contains(out, "x = 1;") {
		t.Errorf("expected 'x = 1;' assignment, got:\n%s", out)
	}
}

func TestGenerateFunctionImplicitReturnVar(t *testing.T) {
	src := `function f() : integer
begin
f := 42
end f
`
	out := generate(t, src, DefaultConfig())
	if !strings.Contains(out, "int f() {") {
		t.Errorf("expected 'int f() {', got:\n%s", out)
	}
	if !strings.Contains(out, "return f;") {
		t.Errorf("expected an implicit trailing return of the function-named variable, got:\n%s", out)
	}
}

func TestGenerateZeroBasedArrayAccess(t *testing.T) {
	src := `procedure p()
var a[0..9] : integer;
begin
a[3] := 1
end p
`
	out := generate(t, src, DefaultConfig())
	if !strings.Contains(out, "int a[9]") {
		t.Errorf("expected 'int a[9]' array declaration, got:\n%s", out)
	}
	if !strings.Contains(out, "a[(3 - a_offset_0)]") {
		t.Errorf("expected offset-based indexing, got:\n%s", out)
	}
}

func TestGenerateOneBasedArrayAccess(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Indexing = IndexOneBased
	src := `procedure p()
var a[1..10] : integer;
begin
a[1] := 1
end p
`
	out := generate(t, src, cfg)
	if !strings.Contains(out, "int a[10]") {
		t.Errorf("expected one-based extent 'int a[10]', got:\n%s", out)
	}
	if !strings.Contains(out, "a[(1 - 1 - a_offset_0)]") {
		t.Errorf("expected one-based offset indexing, got:\n%s", out)
	}
}

func TestGenerateOutParameterDereference(t *testing.T) {
	src := `procedure setval(out n : integer)
begin
n := 5
end setval
`
	out := generate(t, src, DefaultConfig())
	if !strings.Contains(out, "void setval(int* n)") {
		t.Errorf("expected an 'int* n' out-parameter signature, got:\n%s", out)
	}
	if !strings.Contains(out, "*n = 5;") {
		t.Errorf("expected an implicit dereference on assignment, got:\n%s", out)
	}
}

func TestGenerateCallPassesAddressForOutArg(t *testing.T) {
	src := `procedure setval(out n : integer)
begin
n := 5
end setval

procedure main()
var x : integer;
begin
setval(x)
end main
`
	out := generate(t, src, DefaultConfig())
	if !strings.Contains(out, "setval(&x);") {
		t.Errorf("expected the call site to pass '&x', got:\n%s", out)
	}
}

func TestGenerateIfElseIfChain(t *testing.T) {
	src := `procedure p()
var x : integer;
begin
if x then
x := 1
elseif x then
x := 2
else
x := 3
endif
end p
`
	out := generate(t, src, DefaultConfig())
	if !strings.Contains(out, "} else if (x) {") {
		t.Errorf("expected a C 'else if' chain, got:\n%s", out)
	}
}

func TestGenerateNegativeStepForLoopFlipsComparison(t *testing.T) {
	src := `procedure p()
var i : integer;
begin
for i := 10 to 0 step -1 do
print i
endfor
end p
`
	out := generate(t, src, DefaultConfig())
	if !strings.Contains(out, "i >= 0") {
		t.Errorf("expected a '>=' comparison for a negative step, got:\n%s", out)
	}
}

func TestGenerateOctalLiteral(t *testing.T) {
	src := `procedure p()
var x: integer;
begin
x := 0o17
end p
`
	out := generate(t, src, DefaultConfig())
	if !strings.Contains(out, "x = 017;") {
		t.Errorf("expected octal literal rewritten to '017', got:\n%s", out)
	}
}

func TestGenerateTrailingDotLiteral(t *testing.T) {
	src := `procedure p()
var x: real;
begin
x := 3.
end p
`
	out := generate(t, src, DefaultConfig())
	if !strings.Contains(out, "x = 3.0;") {
		t.Errorf("expected trailing-dot literal expanded to '3.0', got:\n%s", out)
	}
}

func TestGenerateBinaryLiteralAddsPreambleComment(t *testing.T) {
	src := `procedure p()
var x: integer;
begin
x := 0b101
end p
`
	out := generate(t, src, DefaultConfig())
	if !strings.HasPrefix(out, "/* compiled with a binary integer literal") {
		t.Errorf("expected a leading binary-literal warning comment, got:\n%s", out)
	}
}

func TestGeneratePrintString(t *testing.T) {
	src := `procedure p()
begin
print "hello"
end p
`
	out := generate(t, src, DefaultConfig())
	if !strings.Contains(out, `printf("hello\n");`) {
		t.Errorf("expected a bare printf call for a string literal, got:\n%s", out)
	}
}

func TestGeneratePrintRealUsesPercentF(t *testing.T) {
	src := `procedure p()
var x: real;
begin
print x
end p
`
	out := generate(t, src, DefaultConfig())
	if !strings.Contains(out, `printf("%f\n", x);`) {
		t.Errorf("expected '%%f' format specifier for a real value, got:\n%s", out)
	}
}

func TestGenerateRecordType(t *testing.T) {
	src := `type point : record
x : integer;
y : integer;
end
`
	out := generate(t, src, DefaultConfig())
	if !strings.Contains(out, "typedef struct point {") {
		t.Errorf("expected a typedef'd struct, got:\n%s", out)
	}
	if !strings.Contains(out, "} point;") {
		t.Errorf("expected the typedef closing line, got:\n%s", out)
	}
}

func TestCompileSkipsCodegenOnErrors(t *testing.T) {
	src := `procedure p() begin x := ; end p`
	result := Compile(src, "test.plike", DefaultConfig(), nil)
	if !result.Report.HasErrors() {
		t.Fatal("expected a reported error")
	}
	if result.Output != "" {
		t.Error("Output should be empty when compilation reported errors")
	}
}
