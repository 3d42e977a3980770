package frames

import (
	"fmt"

	"github.com/star/framerot/internal/rotation"
	"github.com/star/framerot/internal/transform"
)

// step is one elementary provider call.
type step uint8

const (
	stepITRFToPEF step = iota
	stepPEFToMOD
	stepPEFToMODUncorrected
	stepPEFToTOD
	stepPEFToTEME
	stepMODToGCRF
	stepITRFToTIRS
	stepTIRSToCIRS
	stepCIRSToGCRF
)

// need flags the parameters a step consumes.
type need uint8

const (
	needUT1 need = 1 << iota
	needTT
	needPolar
	needNutation
	needCIP
)

type stepInfo struct {
	name  string
	needs need
}

var stepTable = [...]stepInfo{
	stepITRFToPEF:           {"ITRF->PEF", needPolar},
	stepPEFToMOD:            {"PEF->MOD", needUT1 | needTT | needNutation},
	stepPEFToMODUncorrected: {"PEF->MOD(uncorrected)", needUT1 | needTT},
	stepPEFToTOD:            {"PEF->TOD", needUT1 | needTT | needNutation},
	stepPEFToTEME:           {"PEF->TEME", needUT1},
	stepMODToGCRF:           {"MOD->GCRF", needTT},
	stepITRFToTIRS:          {"ITRF->TIRS", needTT | needPolar},
	stepTIRSToCIRS:          {"TIRS->CIRS", needUT1},
	stepCIRSToGCRF:          {"CIRS->GCRF", needTT | needCIP},
}

func (s step) String() string { return stepTable[s].name }

// sequence evaluates the provider for s with resolved parameters.
func (s step) sequence(p params) rotation.Sequence {
	switch s {
	case stepITRFToPEF:
		return transform.ITRFToPEF(p.xp, p.yp)
	case stepPEFToMOD:
		return transform.PEFToMOD(p.jdUT1, p.jdTT, p.dEps, p.dPsi)
	case stepPEFToMODUncorrected:
		return transform.PEFToMOD(p.jdUT1, p.jdTT, 0, 0)
	case stepPEFToTOD:
		return transform.PEFToTOD(p.jdUT1, p.jdTT, p.dPsi)
	case stepPEFToTEME:
		return transform.PEFToTEME(p.jdUT1)
	case stepMODToGCRF:
		return transform.MODToGCRF(p.jdTT)
	case stepITRFToTIRS:
		return transform.ITRFToTIRS(p.jdTT, p.xp, p.yp)
	case stepTIRSToCIRS:
		return transform.TIRSToCIRS(p.jdUT1)
	case stepCIRSToGCRF:
		return transform.CIRSToGCRF(p.jdTT, p.dX, p.dY)
	}
	panic(fmt.Sprintf("frames: unknown step %d", s))
}

type routeKey struct {
	family Family
	from   Frame
	to     Frame
}

// routes maps an Earth-fixed origin and a destination to the steps that
// rotate from one to the other, in application order.
var routes = map[routeKey][]step{
	{FK5, ITRF, PEF}:   {stepITRFToPEF},
	{FK5, ITRF, GCRF}:  {stepITRFToPEF, stepPEFToMOD, stepMODToGCRF},
	{FK5, ITRF, J2000}: {stepITRFToPEF, stepPEFToMODUncorrected, stepMODToGCRF},
	{FK5, ITRF, MOD}:   {stepITRFToPEF, stepPEFToMOD},
	{FK5, ITRF, TOD}:   {stepITRFToPEF, stepPEFToTOD},
	{FK5, ITRF, TEME}:  {stepITRFToPEF, stepPEFToTEME},
	{FK5, PEF, GCRF}:   {stepPEFToMOD, stepMODToGCRF},
	{FK5, PEF, J2000}:  {stepPEFToMODUncorrected, stepMODToGCRF},
	{FK5, PEF, MOD}:    {stepPEFToMOD},
	{FK5, PEF, TOD}:    {stepPEFToTOD},
	{FK5, PEF, TEME}:   {stepPEFToTEME},

	{IAU2006, ITRF, TIRS}: {stepITRFToTIRS},
	{IAU2006, ITRF, CIRS}: {stepITRFToTIRS, stepTIRSToCIRS},
	{IAU2006, ITRF, GCRF}: {stepITRFToTIRS, stepTIRSToCIRS, stepCIRSToGCRF},
	{IAU2006, TIRS, CIRS}: {stepTIRSToCIRS},
	{IAU2006, TIRS, GCRF}: {stepTIRSToCIRS, stepCIRSToGCRF},
}

// leg is a route evaluated forwards or inverted.
type leg struct {
	steps   []step
	inverse bool
}

// path is the planned conversion.
type path struct {
	family Family
	legs   []leg
	// pivoted is set when two inertial frames are joined through the Earth-
	// fixed pivot; the sidereal rotation then cancels.
	pivoted bool
}

func (p path) needs() need {
	var n need
	for _, l := range p.legs {
		for _, s := range l.steps {
			n |= stepTable[s].needs
		}
	}
	return n
}

// findLeg returns the direct or inverted route between two frames.
func findLeg(fam Family, from, to Frame) (leg, bool) {
	if steps, ok := routes[routeKey{fam, from, to}]; ok {
		return leg{steps: steps}, true
	}
	if steps, ok := routes[routeKey{fam, to, from}]; ok {
		return leg{steps: steps, inverse: true}, true
	}
	return leg{}, false
}

// planPath builds the leg list for from→to within a family.
func planPath(fam Family, from, to Frame) (path, error) {
	p := path{family: fam}
	if from == to {
		return p, nil
	}
	if l, ok := findLeg(fam, from, to); ok {
		p.legs = []leg{l}
		return p, nil
	}
	if !from.EarthFixed() && !to.EarthFixed() {
		pv := fam.pivot()
		in, ok1 := findLeg(fam, from, pv)
		out, ok2 := findLeg(fam, pv, to)
		if ok1 && ok2 {
			p.legs = []leg{in, out}
			p.pivoted = true
			return p, nil
		}
	}
	return p, fmt.Errorf("%w: %s to %s in %s", ErrUnsupportedConversion, from, to, fam)
}

// Route describes a planned conversion.
type Route struct {
	Family Family
	Steps  []string
}

func (p path) describe() Route {
	r := Route{Family: p.family, Steps: []string{}}
	for _, l := range p.legs {
		if !l.inverse {
			for _, s := range l.steps {
				r.Steps = append(r.Steps, s.String())
			}
			continue
		}
		for i := len(l.steps) - 1; i >= 0; i-- {
			r.Steps = append(r.Steps, "inverse("+l.steps[i].String()+")")
		}
	}
	return r
}
