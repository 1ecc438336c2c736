package output

// Advertiser publishes output state to clients. The display layer implements
// it; each connected client gets the current state on bind and every update.
type Advertiser interface {
	AdvertiseOutput(name string, physical PhysicalProperties, state State)
	WithdrawOutput(name string)
}

// Global is the protocol advertisement of an Output. Destroying it withdraws
// the output from clients.
type Global struct {
	output    *Output
	adv       Advertiser
	destroyed bool
}

// CreateGlobal advertises o through adv and keeps re-advertising on change.
func (o *Output) CreateGlobal(adv Advertiser) *Global {
	g := &Global{output: o, adv: adv}
	adv.AdvertiseOutput(o.name, o.physical, o.state)
	o.OnChange(func(s State) {
		if g.destroyed {
			return
		}
		g.adv.AdvertiseOutput(o.name, o.physical, s)
	})
	return g
}

// Output returns the advertised output.
func (g *Global) Output() *Output { return g.output }

// Destroy withdraws the advertisement. It is safe to call twice.
func (g *Global) Destroy() {
	if g == nil || g.destroyed {
		return
	}
	g.destroyed = true
	g.adv.WithdrawOutput(g.output.name)
}
