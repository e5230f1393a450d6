// Package names resolves name occurrences to fully qualified names using
// the file's namespace and use statements. The table is keyed by span, so
// consumers never re-derive resolution context.
package names

import (
	"strings"

	"github.com/mago-lang/mago/internal/ast"
	"github.com/mago-lang/mago/internal/interner"
	"github.com/mago-lang/mago/internal/token"
)

// Table maps name-occurrence spans to fully qualified name ids.
type Table struct {
	namespace string
	aliases   map[string]string // lowercased alias -> FQN
	names     map[token.Key]interner.StringId
	imported  map[token.Key]bool
}

// Get returns the resolved name for the occurrence at sp.
func (t *Table) Get(sp token.Span) (interner.StringId, bool) {
	id, ok := t.names[sp.Key()]
	return id, ok
}

// IsImported reports whether the occurrence at sp resolved through a use
// statement.
func (t *Table) IsImported(sp token.Span) bool {
	return t.imported[sp.Key()]
}

// Namespace returns the file's namespace ("" for the global namespace).
func (t *Table) Namespace() string { return t.namespace }

// Qualify resolves a raw name string against the file's namespace and
// imports. Used for type hints and docblock type strings, which carry
// names outside the span-keyed table.
func (t *Table) Qualify(name string) string {
	if name == "" {
		return name
	}
	if strings.HasPrefix(name, `\`) {
		return name[1:]
	}
	switch lower := strings.ToLower(name); lower {
	case "self", "static", "parent":
		return lower
	}
	head := name
	rest := ""
	if i := strings.IndexByte(name, '\\'); i >= 0 {
		head, rest = name[:i], name[i:]
	}
	if fqn, ok := t.aliases[strings.ToLower(head)]; ok {
		return fqn + rest
	}
	if t.namespace == "" {
		return name
	}
	return t.namespace + `\` + name
}

// qualifyOccurrence is Qualify plus the imported flag.
func (t *Table) qualifyOccurrence(name string) (string, bool) {
	if name == "" || strings.HasPrefix(name, `\`) {
		return t.Qualify(name), false
	}
	head := name
	if i := strings.IndexByte(name, '\\'); i >= 0 {
		head = name[:i]
	}
	_, imported := t.aliases[strings.ToLower(head)]
	return t.Qualify(name), imported
}

// Resolve builds the table for one parsed file.
func Resolve(ir *interner.Interner, program *ast.Program) *Table {
	t := &Table{
		namespace: program.Namespace,
		aliases:   make(map[string]string),
		names:     make(map[token.Key]interner.StringId),
		imported:  make(map[token.Key]bool),
	}

	// First pass: use statements establish aliases for the whole file.
	for _, stmt := range program.Statements {
		u, ok := stmt.(*ast.UseStatement)
		if !ok {
			continue
		}
		path := strings.TrimPrefix(u.Path, `\`)
		alias := u.Alias
		if alias == "" {
			if i := strings.LastIndexByte(path, '\\'); i >= 0 {
				alias = path[i+1:]
			} else {
				alias = path
			}
		}
		t.aliases[strings.ToLower(alias)] = path
	}

	r := &resolver{ir: ir, table: t}
	for _, stmt := range program.Statements {
		r.statement(stmt)
	}
	return t
}

type resolver struct {
	ir    *interner.Interner
	table *Table
}

func (r *resolver) record(n *ast.Name) {
	if n == nil {
		return
	}
	fqn, imported := r.table.qualifyOccurrence(n.Value)
	r.table.names[n.Sp.Key()] = r.ir.Intern(fqn)
	if imported {
		r.table.imported[n.Sp.Key()] = true
	}
}

func (r *resolver) statement(s ast.Statement) {
	switch st := s.(type) {
	case *ast.ExpressionStatement:
		r.expression(st.Expr)
	case *ast.EchoStatement:
		for _, v := range st.Values {
			r.expression(v)
		}
	case *ast.BlockStatement:
		for _, inner := range st.Statements {
			r.statement(inner)
		}
	case *ast.IfStatement:
		r.expression(st.Condition)
		r.statement(st.Then)
		for _, ei := range st.ElseIfs {
			r.expression(ei.Condition)
			r.statement(ei.Body)
		}
		if st.Else != nil {
			r.statement(st.Else)
		}
	case *ast.WhileStatement:
		r.expression(st.Condition)
		r.statement(st.Body)
	case *ast.DoWhileStatement:
		r.statement(st.Body)
		r.expression(st.Condition)
	case *ast.ForStatement:
		for _, e := range st.Init {
			r.expression(e)
		}
		for _, e := range st.Condition {
			r.expression(e)
		}
		for _, e := range st.Update {
			r.expression(e)
		}
		r.statement(st.Body)
	case *ast.ForeachStatement:
		r.expression(st.Iterable)
		r.statement(st.Body)
	case *ast.SwitchStatement:
		r.expression(st.Subject)
		for _, c := range st.Cases {
			if c.Condition != nil {
				r.expression(c.Condition)
			}
			for _, inner := range c.Body {
				r.statement(inner)
			}
		}
	case *ast.ReturnStatement:
		if st.Value != nil {
			r.expression(st.Value)
		}
	case *ast.TryStatement:
		r.statement(st.Body)
		for _, c := range st.Catches {
			for _, name := range c.Types {
				r.record(name)
			}
			r.statement(c.Body)
		}
		if st.Finally != nil {
			r.statement(st.Finally)
		}
	case *ast.UnsetStatement:
		for _, v := range st.Vars {
			r.expression(v)
		}
	case *ast.FunctionDeclaration:
		r.record(st.Name)
		r.params(st.Params)
		if st.Body != nil {
			r.statement(st.Body)
		}
	case *ast.ClassLikeDeclaration:
		r.record(st.Name)
		r.record(st.Parent)
		for _, i := range st.Interfaces {
			r.record(i)
		}
		for _, u := range st.Uses {
			r.record(u)
		}
		for _, c := range st.Consts {
			r.expression(c.Value)
		}
		for _, p := range st.Properties {
			if p.Default != nil {
				r.expression(p.Default)
			}
		}
		for _, m := range st.Methods {
			r.params(m.Params)
			if m.Body != nil {
				r.statement(m.Body)
			}
		}
		for _, c := range st.Cases {
			if c.Backing != nil {
				r.expression(c.Backing)
			}
		}
	case *ast.ConstDeclaration:
		r.record(st.Name)
		r.expression(st.Value)
	}
}

func (r *resolver) params(params []*ast.Parameter) {
	for _, p := range params {
		if p.Default != nil {
			r.expression(p.Default)
		}
	}
}

func (r *resolver) expression(e ast.Expression) {
	switch ex := e.(type) {
	case *ast.ArrayLiteral:
		for _, item := range ex.Items {
			if item.Key != nil {
				r.expression(item.Key)
			}
			r.expression(item.Value)
		}
	case *ast.BinaryExpression:
		r.expression(ex.Left)
		r.expression(ex.Right)
	case *ast.UnaryExpression:
		r.expression(ex.Operand)
	case *ast.AssignExpression:
		r.expression(ex.Target)
		r.expression(ex.Value)
	case *ast.TernaryExpression:
		r.expression(ex.Condition)
		if ex.Then != nil {
			r.expression(ex.Then)
		}
		r.expression(ex.Else)
	case *ast.CallExpression:
		r.expression(ex.Callee)
		r.arguments(ex.Args)
	case *ast.MethodCallExpression:
		r.expression(ex.Receiver)
		r.arguments(ex.Args)
	case *ast.StaticCallExpression:
		r.record(ex.Class)
		r.arguments(ex.Args)
	case *ast.PropertyAccessExpression:
		r.expression(ex.Receiver)
	case *ast.StaticPropertyAccessExpression:
		r.record(ex.Class)
	case *ast.ClassConstAccessExpression:
		r.record(ex.Class)
	case *ast.ConstFetchExpression:
		r.record(ex.Name)
	case *ast.NewExpression:
		r.record(ex.Class)
		r.arguments(ex.Args)
	case *ast.InstanceofExpression:
		r.expression(ex.Value)
		r.record(ex.Class)
	case *ast.IssetExpression:
		for _, v := range ex.Vars {
			r.expression(v)
		}
	case *ast.EmptyExpression:
		r.expression(ex.Value)
	case *ast.ArrayAccessExpression:
		r.expression(ex.Array)
		if ex.Index != nil {
			r.expression(ex.Index)
		}
	case *ast.ThrowExpression:
		r.expression(ex.Value)
	case *ast.ClosureExpression:
		r.params(ex.Params)
		if ex.Body != nil {
			r.statement(ex.Body)
		}
	case *ast.ArrowFunctionExpression:
		r.params(ex.Params)
		r.expression(ex.Body)
	case *ast.CastExpression:
		r.expression(ex.Operand)
	case *ast.CloneExpression:
		r.expression(ex.Operand)
	case *ast.MatchExpression:
		r.expression(ex.Subject)
		for _, arm := range ex.Arms {
			for _, c := range arm.Conditions {
				r.expression(c)
			}
			r.expression(arm.Body)
		}
	}
}

func (r *resolver) arguments(args []*ast.Argument) {
	for _, a := range args {
		r.expression(a.Value)
	}
}
