// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscv

const maxHarts = 8

// Hart is one discovered RISC-V hardware thread.
type Hart struct {
	index   uint32 // the hartsel value that selects this hart
	dtm     *DTM
	mhartid uint32
	haveID  bool

	// scratch backs up x1..x31 around a progbuf exec (§4.4 step 2/7).
	scratch [31]uint32
}

// Index returns this hart's hartsel value.
func (h *Hart) Index() uint32 { return h.index }

// MHartID reads the mhartid CSR on first use and caches it, per §9's Open
// Question resolution: hart discovery does not eagerly populate mhartid.
func (h *Hart) MHartID() (uint32, error) {
	if h.haveID {
		return h.mhartid, nil
	}
	d := h.dtm
	if cur := d.CurrentHart(); cur != h {
		// Point hartsel at this hart for the read, then back at the current one.
		if err := d.dmiWrite(dmDMControl, encodeHartSel(h.index)); err != nil {
			return 0, err
		}
		if cur != nil {
			defer d.dmiWrite(dmDMControl, encodeHartSel(cur.index))
		}
	}
	v, err := d.abstractReadRegister(regnoCSRBase | csrMHartID)
	if err != nil {
		return 0, err
	}
	h.mhartid = v
	h.haveID = true
	return v, nil
}

// discoverHarts implements §4.6: probe hartsellen by writing all-ones to
// hartsel and reading back what stuck, then scan indices until dmstatus
// reports anynonexistent. Selects hart 0 on completion, per §9's Open
// Question resolution (not the post-loop out-of-range index the source
// selects).
func (d *DTM) discoverHarts() error {
	if err := d.dmiWrite(dmDMControl, encodeHartSel(maxHartSel)); err != nil {
		return err
	}
	probe, err := d.dmiRead(dmDMControl)
	if err != nil {
		return err
	}
	hartsellen := decodeHartSel(probe)

	limit := int(hartsellen)
	if limit > maxHarts-1 {
		limit = maxHarts - 1
	}

	d.harts = d.harts[:0]
	for i := 0; i <= limit; i++ {
		if err := d.dmiWrite(dmDMControl, encodeHartSel(uint32(i))); err != nil {
			return err
		}
		status, err := d.dmiRead(dmDMStatus)
		if err != nil {
			return err
		}
		if status&dmstatusAnyNonExistent != 0 {
			break
		}
		d.harts = append(d.harts, &Hart{index: uint32(i), dtm: d})
	}
	if len(d.harts) == 0 {
		return &TransportError{Op: "discover_harts", Err: errNoHarts}
	}
	return d.selectHartIndex(0)
}

// selectHartIndex writes hartsel for harts[idx] and records it current.
func (d *DTM) selectHartIndex(idx int) error {
	if idx < 0 || idx >= len(d.harts) {
		return usageErrorf("hart index %d out of range [0,%d)", idx, len(d.harts))
	}
	if err := d.dmiWrite(dmDMControl, encodeHartSel(d.harts[idx].index)); err != nil {
		return err
	}
	d.currentHart = idx
	return nil
}

// CurrentHart returns the hart hartsel currently points at, or nil if none
// has been selected (only possible before Init completes).
func (d *DTM) CurrentHart() *Hart {
	if d.currentHart < 0 || d.currentHart >= len(d.harts) {
		return nil
	}
	return d.harts[d.currentHart]
}

// Harts returns the discovered harts in hartsel order.
func (d *DTM) Harts() []*Hart {
	out := make([]*Hart, len(d.harts))
	copy(out, d.harts)
	return out
}

// SelectHart makes the hart at the given index (into Harts()) current.
func (d *DTM) SelectHart(idx int) error {
	if d.isDead() {
		return &TransportError{Op: "select_hart", Err: errHandleDead}
	}
	return d.selectHartIndex(idx)
}
