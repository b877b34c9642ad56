package macro_auto

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
)

// DemoAutomation walks the same search loop as the real routine against a
// simulated result table: every requested row is sold out until the given
// number of refreshes has passed, then the last row opens up.
type DemoAutomation struct {
	Step   time.Duration // pause between refreshes
	Cycles int           // refreshes before a seat appears
}

const (
	cellSoldOut = "매진"
	cellReserve = "예약하기"
)

func (a *DemoAutomation) Run(ctx context.Context, p macro_serv.Params, out io.Writer) error {
	step := a.Step
	if step <= 0 {
		step = time.Second
	}

	fmt.Fprintf(out, "[demo] %s -> %s on %s from %s:00, rows %d-%d, seats %s\n",
		p.Arrival, p.Departure, p.Date, p.Time, p.FromRow, p.ToRow, p.Seats)

	t := time.NewTicker(step)
	defer t.Stop()

	for refresh := 0; ; refresh++ {
		for _, col := range p.SeatColumns() {
			for row := p.FromRow; row <= p.ToRow; row++ {
				if a.cell(refresh, row, p.ToRow) == cellReserve {
					fmt.Fprintf(out, "[demo] row %d column %d bookable, reserving\n", row, col)
					fmt.Fprintln(out, "[demo] reservation complete, pay within 10 minutes")
					return nil
				}
			}
		}

		fmt.Fprintf(out, "[demo] refresh %d: nothing available\n", refresh+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (a *DemoAutomation) cell(refresh, row, last int) string {
	if refresh >= a.Cycles && row == last {
		return cellReserve
	}
	return cellSoldOut
}
