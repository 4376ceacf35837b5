package cmds

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"procmem/process"
)

// addressValue accepts decimal or 0x-prefixed addresses, negative ones included,
// and wraps them into the 32-bit address space
type addressValue process.Address

var _ pflag.Value = (*addressValue)(nil)

func (a *addressValue) String() string {
	return process.Address(*a).String()
}

func (a *addressValue) Set(s string) error {
	addr, err := parseAddress(s)
	if err != nil {
		return err
	}
	*a = addressValue(addr)
	return nil
}

func (a *addressValue) Type() string {
	return "address"
}

func parseAddress(s string) (process.Address, error) {
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return process.AddressFromUint64(uint64(v)), nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return process.AddressFromUint64(v), nil
}

func parsePID(s string) (process.ProcessID, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid process id %q", s)
	}
	return process.ProcessID(v), nil
}

func addressFlag(flags *pflag.FlagSet, name, usage string) *process.Address {
	var addr process.Address
	flags.Var((*addressValue)(&addr), name, usage)
	return &addr
}
