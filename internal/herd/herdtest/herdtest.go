// Package herdtest provides compact herd configurations for tests in other packages.
package herdtest

import "github.com/danielpatrickdp/digital-cow/internal/herd"

// Small returns a herd whose chain has 414 states and 822 edges at ten places.
func Small() herd.Params {
	p := herd.Default()
	must(p.SetVoluntaryWaitingPeriods([]int{10, 5, 5}))
	must(p.SetInseminationWindows([]int{5, 5, 5}))
	must(p.SetDaysPregnantLimits([]int{8, 9, 10}))
	must(p.SetDurationsDry([]int{2, 3}))
	p.DaysInMilkLimit = 40
	p.LactationNumberLimit = 2
	return p
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
