package reader

import (
	"errors"

	"procmem/process"
	"procmem/process/memory_map"
	"procmem/signature"
)

// FindSignature returns the address of the first match of sig, searching regions in
// snapshot order and each region from its lowest offset. A region that can only be partially
// copied is skipped. Any other read failure ends the search as not found.
func (r *Reader) FindSignature(sig string) (process.Address, error) {
	if r.closed {
		return 0, process.ErrSessionClosed
	}

	parsed, err := signature.Parse(sig)
	if err != nil {
		return 0, err
	}

	addr, ok := r.scan(parsed)
	if !ok {
		return 0, &process.SignatureError{Signature: sig, Err: process.ErrSignatureNotFound}
	}
	return addr, nil
}

func (r *Reader) scan(sig signature.Signature) (process.Address, bool) {
	var buf []byte
	for _, region := range r.regions {
		// Reserved pages have no backing store. ReadProcessMemory fails on them with
		// ERROR_PARTIAL_COPY and process_vm_readv with EFAULT, both classified as a partial
		// copy, so they are skipped without allocating a buffer the size of the reservation.
		if region.State != memory_map.StateCommit {
			continue
		}

		if uint64(cap(buf)) < region.Size {
			buf = make([]byte, region.Size)
		}
		data := buf[:region.Size]

		n, err := r.os.ReadMemory(r.handle, region.Address, data)
		if err != nil {
			if errors.Is(err, process.ErrPartialCopy) {
				r.log.Debugln("Skipping region", region, ":", err)
				continue
			}
			r.log.Debugln("Aborting scan at region", region, ":", err)
			return 0, false
		}

		if off := sig.Index(data[:n]); off >= 0 {
			return process.AddressFromUint64(region.Address + uint64(off)), true
		}
	}

	return 0, false
}
