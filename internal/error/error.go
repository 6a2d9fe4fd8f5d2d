package error

import "fmt"

func ErrCoordinateOutOfField(x, y uint8) error {
	return fmt.Errorf("coordinate does not fit the 3-bit packet fields\tx: %d\ty: %d", x, y)
}

func ErrXorYOutOfGridBound(x, y uint8) error {
	return fmt.Errorf("x or y is out of game grid bound\tx: %d\ty: %d", x, y)
}

func ErrLayoutTooLarge(cells, max int) error {
	return fmt.Errorf("layout has too many occupied cells\tgot: %d\tmax: %d", cells, max)
}

func ErrLayoutCellRepeated(x, y uint8) error {
	return fmt.Errorf("layout cell occupied more than once\tx: %d\ty: %d", x, y)
}

func ErrBoatOverlap(x, y uint8) error {
	return fmt.Errorf("boat overlaps a previously placed boat\tx: %d\ty: %d", x, y)
}

func ErrInvalidRole(role string) error {
	return fmt.Errorf("invalid peer role: %s", role)
}

func ErrInvalidStage(stage string) error {
	return fmt.Errorf("invalid type of development stage: %s", stage)
}

func ErrInvalidLinkMode(mode string) error {
	return fmt.Errorf("invalid link mode: %s", mode)
}

func ErrInvalidCommand(line string) error {
	return fmt.Errorf("could not parse command: %q", line)
}
