package common

import (
	"reflect"
	"testing"
)

func TestRingBuffer_Get(t *testing.T) {
	rb := NewRingBuffer[int](3)
	rb.Add(1)
	rb.Add(2)
	rb.Add(3)

	if got, want := rb.Get(), []int{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, but got %v", want, got)
	}

	rb.Add(4)
	if got, want := rb.Get(), []int{2, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, but got %v", want, got)
	}
}

func TestRingBuffer_Tail(t *testing.T) {
	rb := NewRingBuffer[int](5)
	for i := 1; i <= 7; i++ {
		rb.Add(i)
	}
	if got, want := rb.Tail(2), []int{6, 7}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, but got %v", want, got)
	}
	// Asking for more than held returns what's held.
	if got := rb.Tail(100); len(got) != 5 {
		t.Errorf("Expected 5 elements, got %d", len(got))
	}
}

func TestRingBuffer_Last(t *testing.T) {
	rb := NewRingBuffer[int](3)
	rb.Add(1)
	rb.Add(2)
	rb.Add(3)
	if got := rb.Last(); got != 3 {
		t.Errorf("Expected 3, but got %d", got)
	}
	rb.Add(4)
	rb.Add(5)
	rb.Add(6)
	if got := rb.Last(); got != 6 {
		t.Errorf("Expected 6, but got %d", got)
	}
}

func TestRingBuffer_Len(t *testing.T) {
	rb := NewRingBuffer[int](3)
	if rb.Len() != 0 {
		t.Errorf("Expected 0, got %d", rb.Len())
	}
	rb.Add(1)
	rb.Add(2)
	if rb.Len() != 2 {
		t.Errorf("Expected 2, got %d", rb.Len())
	}
	rb.Add(3)
	rb.Add(4)
	if rb.Len() != 3 {
		t.Errorf("Expected 3, got %d", rb.Len())
	}
}
