package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	doc, err := ParseWorkflow([]byte(`targets:
  - name: t
    steps:
      - set: x
        to: 1
      - do: move
        args: [x, {literal: north}]
        into: moved
      - if: x > 0
        then:
          - raise: Boom
            message: no
        else: []
      - for: i
        in: range(2)
        body:
          - try:
              - pass
            except:
              - match: Boom
                body: [{return: i}]
      - func: f
        params: [a]
        body: []
      - return: ~
`))
	require.NoError(t, err)

	want := `   4  x = 1
   6  moved = move(x, "north")
   9  if x > 0:
  11      raise Boom("no")
  14  for i in range(2):
  17      try:
  18          pass
          except Boom:
  21          return i
  22  func f(a):
          pass
  25  return <nil>
`
	assert.Equal(t, want, Render(doc.Targets[0].Steps))
}

func TestRender_Empty(t *testing.T) {
	assert.Empty(t, Render(nil))
}
