package milp

import (
	"fmt"
	"math"
	"strings"
)

type Sense int

const (
	Maximize Sense = iota
	Minimize
)

type VariableKind int

const (
	Binary VariableKind = iota
	Integer
	Continuous
)

type Comparison int

const (
	LessEqual Comparison = iota
	GreaterEqual
	Equal
)

func (comparison Comparison) String() string {
	switch comparison {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	default:
		return "="
	}
}

type Variable struct {
	Name  string
	Kind  VariableKind
	Lower float64
	Upper float64 // math.Inf(1) when unbounded
}

type Term struct {
	Variable int
	Coef     float64
}

type Constraint struct {
	Name  string
	Terms []Term
	Op    Comparison
	RHS   float64
}

// Problem is a linear program over indexed variables. Variables are referenced by their position in Variables.
type Problem struct {
	Name        string
	Sense       Sense
	Variables   []Variable
	Objective   []Term
	Constraints []Constraint
}

func NewProblem(name string, sense Sense) *Problem {
	return &Problem{
		Name:        name,
		Sense:       sense,
		Variables:   []Variable{},
		Objective:   []Term{},
		Constraints: []Constraint{},
	}
}

// AddBinary appends a 0/1 variable and returns its index
func (p *Problem) AddBinary(name string) int {
	p.Variables = append(p.Variables, Variable{Name: name, Kind: Binary, Lower: 0, Upper: 1})
	return len(p.Variables) - 1
}

func (p *Problem) AddConstraint(constraint Constraint) {
	p.Constraints = append(p.Constraints, constraint)
}

func (p *Problem) SetObjective(terms []Term) {
	p.Objective = terms
}

// Conditional builds "sum(terms) op rhs * indicator". When the indicator is 0 the right-hand side collapses to 0,
// so for GreaterEqual with non-negative terms the requirement is vacuous and only binds when the indicator is 1.
func Conditional(name string, terms []Term, op Comparison, rhs float64, indicator int) Constraint {
	lhs := make([]Term, 0, len(terms)+1)
	lhs = append(lhs, terms...)
	lhs = append(lhs, Term{Variable: indicator, Coef: -rhs})
	return Constraint{Name: name, Terms: lhs, Op: op, RHS: 0}
}

// Evaluate returns the objective value of the given assignment
func (p *Problem) Evaluate(values []float64) float64 {
	total := 0.0
	for _, term := range p.Objective {
		total += term.Coef * values[term.Variable]
	}
	return total
}

// Feasible checks every constraint and bound of the problem against the given assignment within tolerance
func (p *Problem) Feasible(values []float64, tolerance float64) bool {
	if len(values) != len(p.Variables) {
		return false
	}
	for i, variable := range p.Variables {
		value := values[i]
		if value < variable.Lower-tolerance || value > variable.Upper+tolerance {
			return false
		}
		if variable.Kind != Continuous && math.Abs(value-math.Round(value)) > tolerance {
			return false
		}
	}
	for _, constraint := range p.Constraints {
		lhs := 0.0
		for _, term := range constraint.Terms {
			lhs += term.Coef * values[term.Variable]
		}
		switch constraint.Op {
		case LessEqual:
			if lhs > constraint.RHS+tolerance {
				return false
			}
		case GreaterEqual:
			if lhs < constraint.RHS-tolerance {
				return false
			}
		case Equal:
			if math.Abs(lhs-constraint.RHS) > tolerance {
				return false
			}
		}
	}
	return true
}

// ColumnName is the name used for the variable in LP files; solver outputs are mapped back through it
func ColumnName(variable int) string {
	return fmt.Sprintf("x%d", variable)
}

func rowName(row int) string {
	return fmt.Sprintf("r%d", row)
}

// ToLP transforms the problem into CPLEX LP format. Columns and rows are renamed to x<i> and r<i> since
// user-facing names (e.g. course codes) may contain characters the format does not allow
func (p *Problem) ToLP() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "\\ Problem: %v\n", p.Name)

	if p.Sense == Maximize {
		builder.WriteString("Maximize\n")
	} else {
		builder.WriteString("Minimize\n")
	}

	// Every column is written in the objective, in index order, so that readers creating columns on first
	// appearance (glpsol) keep the same numbering
	coefficients := make([]float64, len(p.Variables))
	for _, term := range p.Objective {
		coefficients[term.Variable] += term.Coef
	}
	builder.WriteString(" obj:")
	for i, coef := range coefficients {
		writeTerm(&builder, coef, i)
		if (i+1)%8 == 0 {
			builder.WriteString("\n")
		}
	}
	builder.WriteString("\n")

	builder.WriteString("Subject To\n")
	for i, constraint := range p.Constraints {
		fmt.Fprintf(&builder, " %v:", rowName(i))
		if len(constraint.Terms) == 0 {
			// The format has no empty rows; a zero-coefficient column keeps the row meaningful
			writeTerm(&builder, 0, 0)
		}
		for _, term := range constraint.Terms {
			writeTerm(&builder, term.Coef, term.Variable)
		}
		fmt.Fprintf(&builder, " %v %v\n", constraint.Op, formatNumber(constraint.RHS))
	}

	builder.WriteString("Bounds\n")
	for i, variable := range p.Variables {
		if variable.Kind == Binary {
			continue
		}
		upper := "+inf"
		if !math.IsInf(variable.Upper, 1) {
			upper = formatNumber(variable.Upper)
		}
		fmt.Fprintf(&builder, " %v <= %v <= %v\n", formatNumber(variable.Lower), ColumnName(i), upper)
	}

	writeSection := func(header string, kind VariableKind) {
		names := []string{}
		for i, variable := range p.Variables {
			if variable.Kind == kind {
				names = append(names, ColumnName(i))
			}
		}
		if len(names) == 0 {
			return
		}
		builder.WriteString(header + "\n")
		for i := 0; i < len(names); i += 8 {
			end := min(i+8, len(names))
			fmt.Fprintf(&builder, " %v\n", strings.Join(names[i:end], " "))
		}
	}
	writeSection("Generals", Integer)
	writeSection("Binaries", Binary)

	builder.WriteString("End\n")
	return builder.String()
}

func writeTerm(builder *strings.Builder, coef float64, variable int) {
	sign := "+"
	if coef < 0 {
		sign = "-"
		coef = -coef
	}
	fmt.Fprintf(builder, " %v %v %v", sign, formatNumber(coef), ColumnName(variable))
}

func formatNumber(value float64) string {
	return fmt.Sprintf("%.12g", value)
}
