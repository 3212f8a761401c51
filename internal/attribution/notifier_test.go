package attribution

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotifierOrderAndSlot(t *testing.T) {
	n := NewNotifier()
	var got []string
	n.Subscribe(func(id string) { got = append(got, "a:"+id) })
	unsub := n.Subscribe(func(id string) { got = append(got, "b:"+id) })
	n.SetCallback(func(id string) { got = append(got, "slot:"+id) })

	n.Notify("X")
	require.Equal(t, []string{"slot:X", "a:X", "b:X"}, got)

	got = nil
	unsub()
	n.SetCallback(func(id string) { got = append(got, "slot2:"+id) })
	n.Notify("Y")
	require.Equal(t, []string{"slot2:Y", "a:Y"}, got)

	got = nil
	n.SetCallback(nil)
	n.Notify("Z")
	require.Equal(t, []string{"a:Z"}, got)
}
