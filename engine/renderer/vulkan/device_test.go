package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueCreateInfosCollapsesSharedFamilies(t *testing.T) {
	infos := QueueCreateInfos(QueueFamilyAssignment{})
	require.Len(t, infos, 1)
	assert.Equal(t, uint32(0), infos[0].QueueFamilyIndex)
	assert.Equal(t, uint32(1), infos[0].QueueCount)
	assert.Equal(t, []float32{1.0}, infos[0].PQueuePriorities)
}

func TestQueueCreateInfosDistinctSortedFamilies(t *testing.T) {
	assignment := QueueFamilyAssignment{
		GraphicsIndex: 2,
		PresentIndex:  0,
		ComputeIndex:  1,
		TransferIndex: 2,
	}

	infos := QueueCreateInfos(assignment)
	require.Len(t, infos, 3)
	for i, want := range []uint32{0, 1, 2} {
		assert.Equal(t, want, infos[i].QueueFamilyIndex)
		assert.Equal(t, uint32(1), infos[i].QueueCount)
	}
}
