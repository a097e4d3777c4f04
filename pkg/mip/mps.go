package mip

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

type mpsEntry struct {
	row  string
	coef float64
}

// WriteMPS writes the problem in free MPS format with every column declared binary
func WriteMPS(w io.Writer, p *Problem) error {
	if err := p.Check(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)

	rowNames := make([]string, len(p.constraints))
	for i, c := range p.constraints {
		rowNames[i] = c.Name
		if rowNames[i] == "" {
			rowNames[i] = "R" + strconv.Itoa(i)
		}
	}

	// column-wise view of objective and constraint coefficients
	columns := make([][]mpsEntry, len(p.varNames))
	objCoef := make([]float64, len(p.varNames))
	for _, t := range p.objective {
		objCoef[t.Var] += t.Coef
	}
	for j, c := range objCoef {
		if c != 0 {
			columns[j] = append(columns[j], mpsEntry{row: "OBJ", coef: c})
		}
	}
	for i, c := range p.constraints {
		for _, t := range c.Expr {
			columns[t.Var] = append(columns[t.Var], mpsEntry{row: rowNames[i], coef: t.Coef})
		}
	}

	name := p.name
	if name == "" {
		name = "MODEL"
	}
	fmt.Fprintf(bw, "NAME %s\n", name)
	bw.WriteString("OBJSENSE\n")
	if p.direction == Maximize {
		bw.WriteString("    MAX\n")
	} else {
		bw.WriteString("    MIN\n")
	}

	bw.WriteString("ROWS\n N  OBJ\n")
	for i, c := range p.constraints {
		var kind string
		switch c.Sense {
		case LessEqual:
			kind = "L"
		case GreaterEqual:
			kind = "G"
		default:
			kind = "E"
		}
		fmt.Fprintf(bw, " %s  %s\n", kind, rowNames[i])
	}

	bw.WriteString("COLUMNS\n")
	for j, entries := range columns {
		col := columnName(p, j)
		if len(entries) == 0 {
			// keep the column declared
			fmt.Fprintf(bw, "    %s  OBJ  0\n", col)
			continue
		}
		for _, e := range entries {
			fmt.Fprintf(bw, "    %s  %s  %s\n", col, e.row, formatFloat(e.coef))
		}
	}

	bw.WriteString("RHS\n")
	for i, c := range p.constraints {
		if c.RHS != 0 {
			fmt.Fprintf(bw, "    RHS  %s  %s\n", rowNames[i], formatFloat(c.RHS))
		}
	}

	bw.WriteString("BOUNDS\n")
	for j := range p.varNames {
		fmt.Fprintf(bw, " BV BND  %s\n", columnName(p, j))
	}
	bw.WriteString("ENDATA\n")
	return bw.Flush()
}

func columnName(p *Problem, j int) string {
	if p.varNames[j] != "" {
		return p.varNames[j]
	}
	return "C" + strconv.Itoa(j)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
