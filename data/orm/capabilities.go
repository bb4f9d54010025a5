package orm

import (
	"fmt"
	"math/bits"
	"strings"
)

// Capability 是适配器可选能力的位标识。
// 超出能力的调用由适配器或仓储返回 ErrUnsupported，不做静默降级。
type Capability uint16

const (
	CapabilityBasicCRUD Capability = 1 << iota
	CapabilityQuery
	CapabilityPreload
	CapabilityBatchWrite
	CapabilityTransaction
	CapabilityMapScan
)

var capabilityNames = map[Capability]string{
	CapabilityBasicCRUD:   "basic_crud",
	CapabilityQuery:       "query",
	CapabilityPreload:     "preload",
	CapabilityBatchWrite:  "batch_write",
	CapabilityTransaction: "transaction",
	CapabilityMapScan:     "map_scan",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("capability(%#x)", uint16(c))
}

// Capabilities 是能力位集合，零值表示不支持任何能力。
type Capabilities uint16

// NewCapabilities 便捷构造能力集合。
func NewCapabilities(caps ...Capability) Capabilities {
	var set Capabilities
	for _, c := range caps {
		set |= Capabilities(c)
	}
	return set
}

// Supports 判断是否支持指定能力。
func (c Capabilities) Supports(cap Capability) bool {
	return cap != 0 && Capabilities(cap)&c == Capabilities(cap)
}

// Require 返回第一个缺失能力对应的错误，错误链包含 ErrUnsupported。
func (c Capabilities) Require(caps ...Capability) error {
	for _, cap := range caps {
		if !c.Supports(cap) {
			return fmt.Errorf("%w: %s", ErrUnsupported, cap)
		}
	}
	return nil
}

// String 按位序列出能力名，如 "basic_crud|query"。
func (c Capabilities) String() string {
	names := make([]string, 0, bits.OnesCount16(uint16(c)))
	for rest := uint16(c); rest != 0; rest &= rest - 1 {
		names = append(names, Capability(rest&-rest).String())
	}
	return strings.Join(names, "|")
}
