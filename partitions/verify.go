package partitions

import (
	"fmt"
	"slices"
)

// VerifySymmetry checks a complete set of partitions, indexed by part id:
// every border (p, r) has a partner (r, p), p's NSend[i] is the same global
// node as r's NRecv[i] for all i, and both sides agree on the dof ids moved.
// The global PartInfo invariants are checked as well.
func VerifySymmetry(parts []*Partition) error {
	infos := make([]PartInfo, len(parts))
	numNodes := 0
	for p, part := range parts {
		if part.Info.Part != p {
			return fmt.Errorf("%w: entry %d holds part %d", ErrInconsistentDecomposition, p, part.Info.Part)
		}
		infos[p] = part.Info
		numNodes = len(part.Numbering.NodeDofs)
	}
	if err := VerifyPartInfos(infos, numNodes); err != nil {
		return err
	}

	for p, part := range parts {
		for _, b := range part.Borders {
			if b.RPart < 0 || b.RPart >= len(parts) || b.RPart == p {
				return fmt.Errorf("%w: part %d has a border to %d", ErrBorderMismatch, p, b.RPart)
			}
			remote := parts[b.RPart]
			rb := remote.Border(p)
			if rb == nil {
				return fmt.Errorf("%w: part %d sends to %d, but %d has no border to %d",
					ErrBorderMismatch, p, b.RPart, b.RPart, p)
			}
			if err := compareSides(part, b.NSend, remote, rb.NRecv); err != nil {
				return fmt.Errorf("%w: %d -> %d: %v", ErrBorderMismatch, p, b.RPart, err)
			}
			if !slices.Equal(b.Data.SendAi, rb.Data.RecvAi) {
				return fmt.Errorf("%w: %d -> %d: send dofs %v, receive dofs %v",
					ErrBorderMismatch, p, b.RPart, b.Data.SendAi, rb.Data.RecvAi)
			}
			// Sent nodes are owned by the sender, received ones by the neighbour
			for _, l := range b.NSend {
				if part.Owner(l) != p {
					return fmt.Errorf("%w: part %d sends node %d owned by %d",
						ErrOwnershipConflict, p, part.GlobalNode(l), part.Owner(l))
				}
			}
			for _, l := range b.NRecv {
				if part.Owner(l) != b.RPart {
					return fmt.Errorf("%w: part %d receives node %d from %d, owner is %d",
						ErrOwnershipConflict, p, part.GlobalNode(l), b.RPart, part.Owner(l))
				}
			}
		}
	}
	return nil
}

func compareSides(sender *Partition, nsend []int, receiver *Partition, nrecv []int) error {
	if len(nsend) != len(nrecv) {
		return fmt.Errorf("sends %d nodes, neighbour receives %d", len(nsend), len(nrecv))
	}
	for i := range nsend {
		gs := sender.GlobalNode(nsend[i])
		gr := receiver.GlobalNode(nrecv[i])
		if gs != gr {
			return fmt.Errorf("position %d: sends node %d, neighbour receives into node %d", i, gs, gr)
		}
	}
	return nil
}
