package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"agentgrid.ai/internal/sim/model"
)

// StateDigest hashes every piece of state that affects future ticks. Map
// content is fed in sorted order so equal states hash equally.
func (w *World) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, w.tick)
	digestWriteI64(h, &tmp, int64(w.cfg.Width))
	digestWriteI64(h, &tmp, int64(w.cfg.Height))
	digestWriteI64(h, &tmp, int64(w.cfg.PerceptionRadius))

	cells := make([]model.Position, 0, len(w.grid))
	for p := range w.grid {
		cells = append(cells, p)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
	digestWriteU64(h, &tmp, uint64(len(cells)))
	for _, p := range cells {
		digestWriteI64(h, &tmp, int64(p.X))
		digestWriteI64(h, &tmp, int64(p.Y))
		h.Write([]byte{byte(w.grid[p])})
	}

	digestWriteU64(h, &tmp, uint64(len(w.agents)))
	for _, s := range w.agents {
		st := s.agent.State()
		digestWriteI64(h, &tmp, int64(s.pos.X))
		digestWriteI64(h, &tmp, int64(s.pos.Y))
		digestWriteU64(h, &tmp, math.Float64bits(st.Energy))
		hist := st.History()
		digestWriteU64(h, &tmp, uint64(len(hist)))
		for _, a := range hist {
			h.Write([]byte{byte(a)})
		}
	}

	digestWriteU64(h, &tmp, uint64(w.deliveries))
	for _, t := range w.deliveryTicks {
		digestWriteU64(h, &tmp, t)
	}
	digestWriteU64(h, &tmp, uint64(w.initialResources))

	return hex.EncodeToString(h.Sum(nil))
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}
