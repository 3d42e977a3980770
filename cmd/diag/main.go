package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/star/framerot/internal/eop"
	"github.com/star/framerot/internal/frames"
	"github.com/star/framerot/internal/timescale"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	var data eop.Data
	var err error
	if len(os.Args) > 1 {
		data, err = eop.LoadFile(os.Args[1], logger)
	} else {
		var raw []byte
		raw, _, err = eop.NewCache("/tmp/framerot/eop", 1).LoadLatest(eop.ModelIAU1980)
		if err == nil {
			data, err = eop.LoadBytes(raw, logger)
		}
	}
	if err != nil {
		fmt.Println("ERROR loading EOP data:", err)
		os.Exit(1)
	}

	first, last := data.Coverage()
	fmt.Printf("Loaded %s data: %d records, MJD %.1f to %.1f\n",
		data.Model(), data.Len(), first-timescale.MJDOffset, last-timescale.MJDOffset)

	epoch := timescale.JulianDate(time.Date(1986, 6, 19, 21, 35, 0, 0, time.UTC))
	if epoch < first || epoch > last {
		epoch = (first + last) / 2
	}
	fmt.Printf("Epoch: %s (JD %.6f)\n\n", timescale.Time(epoch).Format(time.RFC3339), epoch)

	d, err := frames.RotateDCM(frames.ITRF, frames.GCRF, epoch, data)
	if err != nil {
		fmt.Println("ERROR ITRF->GCRF:", err)
		os.Exit(1)
	}
	q, _ := frames.RotateQuaternion(frames.ITRF, frames.GCRF, epoch, data)
	q0, q1, q2, q3 := q.Components()
	fmt.Println("ITRF -> GCRF")
	for _, row := range d.Rows() {
		fmt.Printf("  [% .12f % .12f % .12f]\n", row[0], row[1], row[2])
	}
	fmt.Printf("  q = [% .12f % .12f % .12f % .12f]\n\n", q0, q1, q2, q3)

	fmt.Println("Pair sweep (orthonormality error, round trip error):")
	failures := 0
	for _, from := range frames.Frames() {
		for _, to := range frames.Frames() {
			fwd, err := frames.RotateDCM(from, to, epoch, data)
			if err != nil {
				continue
			}
			back, err := frames.RotateDCM(to, from, epoch, data)
			if err != nil {
				fmt.Printf("  %-5s -> %-5s: ERROR inverse %v\n", from, to, err)
				failures++
				continue
			}
			trip := fwd.Then(back)
			var roundTrip float64
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					want := 0.0
					if i == j {
						want = 1
					}
					roundTrip = max(roundTrip, math.Abs(trip.At(i, j)-want))
				}
			}
			fmt.Printf("  %-5s -> %-5s: %.1e  %.1e\n", from, to, fwd.OrthonormalityError(), roundTrip)
		}
	}
	fmt.Printf("\nFailures: %d\n", failures)
}
