package mapdata

import (
	"bufio"
	"fmt"
	"os"

	"github.com/hoppss/path-planner/domain"
)

// LoadGridWorld parses a grid-world text map. The header line holds
// "<cols> <rows> <cellsize>", followed by rows of '#' (blocked) and '.'
// (free) characters, topmost row first.
func LoadGridWorld(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.WrapErrorf(err, domain.ErrMapLoad, "opening grid-world map %q", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, domain.WrapErrorf(scanner.Err(), domain.ErrMapLoad, "grid-world map %q missing header", path)
	}

	var cols, rows int
	var cellSize float64
	if _, err := fmt.Sscanf(scanner.Text(), "%d %d %f", &cols, &rows, &cellSize); err != nil {
		return nil, domain.WrapErrorf(err, domain.ErrMapLoad, "grid-world map %q header", path)
	}
	if cols <= 0 || rows <= 0 || cellSize <= 0 {
		return nil, domain.WrapErrorf(nil, domain.ErrMapLoad, "grid-world map %q has invalid dimensions %dx%d", path, cols, rows)
	}

	g := &Grid{
		CellSize: cellSize,
		Cols:     cols,
		Rows:     rows,
		Cells:    make([]float64, cols*rows),
	}
	for fileRow := 0; fileRow < rows; fileRow++ {
		if !scanner.Scan() {
			return nil, domain.WrapErrorf(scanner.Err(), domain.ErrMapLoad, "grid-world map %q truncated at row %d", path, fileRow)
		}
		line := scanner.Text()
		if len(line) < cols {
			return nil, domain.WrapErrorf(nil, domain.ErrMapLoad, "grid-world map %q row %d shorter than %d cells", path, fileRow, cols)
		}
		// topmost file row is the highest y
		row := rows - 1 - fileRow
		for col := 0; col < cols; col++ {
			if line[col] == '#' {
				g.Cells[row*cols+col] = BlockedCost
			}
		}
	}
	return g, nil
}
