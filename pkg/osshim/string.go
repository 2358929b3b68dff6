package osshim

import (
	"fmt"

	"hackvm.dev/n2t/pkg/word"
)

// Jack strings are heap objects with a two-word header (length, then capacity)
// followed by capacity words of character data, one character per word.
const (
	stringLengthOffset   = 0
	stringCapacityOffset = 1
	stringDataOffset     = 2
)

func (s *Shim) stringNew(ram *word.RAM, a argList) (word.Word, error) {
	capacity := a.get(0)
	address, err := s.memory.Alloc(capacity + 2)
	if err != nil {
		return 0, fmt.Errorf("String.new: %w", err)
	}
	ram[address+stringLengthOffset] = 0
	ram[address+stringCapacityOffset] = capacity
	return address, nil
}

func stringLength(ram *word.RAM, a argList) word.Word {
	address := a.get(0)
	return ram[address+stringLengthOffset]
}

func stringCharAt(ram *word.RAM, a argList) (word.Word, error) {
	address, index := a.get(0), a.get(1)
	if ram[address+stringLengthOffset] <= index {
		return 0, fmt.Errorf("String.charAt: index %d out of bounds", index)
	}
	return ram[address+stringDataOffset+index], nil
}

func stringSetCharAt(ram *word.RAM, a argList) (word.Word, error) {
	address, index, value := a.get(0), a.get(1), a.get(2)
	if ram[address+stringLengthOffset] <= index {
		return 0, fmt.Errorf("String.setCharAt: index %d out of bounds", index)
	}
	ram[address+stringDataOffset+index] = value
	return 0, nil
}

func stringAppendChar(ram *word.RAM, a argList) (word.Word, error) {
	address, ch := a.get(0), a.get(1)
	length := ram[address+stringLengthOffset]
	if length >= ram[address+stringCapacityOffset] {
		return 0, fmt.Errorf("String.appendChar: string at capacity")
	}
	ram[address+stringDataOffset+length] = ch
	ram[address+stringLengthOffset] = length + 1
	return address, nil
}

func stringEraseLastChar(ram *word.RAM, a argList) (word.Word, error) {
	address := a.get(0)
	length := ram[address+stringLengthOffset]
	if length <= 0 {
		return 0, fmt.Errorf("String.eraseLastChar: string is empty")
	}
	ram[address+stringLengthOffset] = length - 1
	return 0, nil
}

func stringIntValue(ram *word.RAM, a argList) (word.Word, error) {
	address := a.get(0)
	length := ram[address+stringLengthOffset]
	if length <= 0 {
		return 0, fmt.Errorf("String.intValue: string is empty")
	}

	start := address + stringDataOffset
	negative := ram[start] == '-'
	if negative {
		start++
	}

	var value int32
	for i := start; i < address+stringDataOffset+length; i++ {
		digit := ram[i] - '0'
		if digit < 0 || digit > 9 {
			return 0, fmt.Errorf("String.intValue: non-digit character %q", rune(ram[i]))
		}
		value = value*10 + int32(digit)
	}
	if negative {
		value = -value
	}
	return word.Word(value), nil
}

func stringSetInt(ram *word.RAM, a argList) (word.Word, error) {
	address, value := a.get(0), int32(a.get(1))

	var buffer [7]word.Word
	index := 0
	remainder := value
	if remainder < 0 {
		remainder = -remainder
	}
	for {
		buffer[index] = word.Word('0' + remainder%10)
		remainder /= 10
		index++
		if remainder == 0 {
			break
		}
	}
	if value < 0 {
		buffer[index] = '-'
		index++
	}

	if word.Word(index) > ram[address+stringCapacityOffset] {
		return 0, fmt.Errorf("String.setInt: value does not fit in capacity")
	}

	for i := 0; i < index; i++ {
		ram[address+stringDataOffset+word.Word(i)] = buffer[index-i-1]
	}
	ram[address+stringLengthOffset] = word.Word(index)
	return 0, nil
}
