package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanDescriptorSetConfig describes the bindings of one set layout.
type VulkanDescriptorSetConfig struct {
	Bindings []vk.DescriptorSetLayoutBinding
}

// AddBinding appends a binding of count descriptors visible to stages.
func (c *VulkanDescriptorSetConfig) AddBinding(binding uint32, t vk.DescriptorType, count uint32, stages vk.ShaderStageFlagBits) *VulkanDescriptorSetConfig {
	c.Bindings = append(c.Bindings, vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  t,
		DescriptorCount: count,
		StageFlags:      vk.ShaderStageFlags(stages),
	})
	return c
}

// PoolCounts is the number of descriptors of each type needed for sets
// copies of this layout.
func (c *VulkanDescriptorSetConfig) PoolCounts(sets uint32) map[vk.DescriptorType]uint32 {
	counts := make(map[vk.DescriptorType]uint32, len(c.Bindings))
	for _, b := range c.Bindings {
		counts[b.DescriptorType] += b.DescriptorCount * sets
	}
	return counts
}

func (c *VulkanDescriptorSetConfig) CreateLayout(vc *VulkanContext, name string) (vk.DescriptorSetLayout, error) {
	return CreateDescriptorSetLayout(vc, c.Bindings, name)
}

// AllocateDescriptorSets allocates count sets of layout from pool.
func AllocateDescriptorSets(vc *VulkanContext, pool vk.DescriptorPool, layout vk.DescriptorSetLayout, count uint32, name string) ([]vk.DescriptorSet, error) {
	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = layout
	}
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: count,
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, count)
	if err := check(vk.AllocateDescriptorSets(vc.Device.LogicalDevice, &info, &sets[0]), "vkAllocateDescriptorSets"); err != nil {
		return nil, err
	}
	for _, set := range sets {
		nameObject(vc, set, vk.DebugReportObjectTypeDescriptorSet, name)
	}
	return sets, nil
}

// DescriptorWriter collects writes for one descriptor set.
type DescriptorWriter struct {
	Set    vk.DescriptorSet
	writes []vk.WriteDescriptorSet
}

func (w *DescriptorWriter) Buffer(binding uint32, t vk.DescriptorType, buffer vk.Buffer, offset, size uint64) *DescriptorWriter {
	w.writes = append(w.writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          w.Set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  t,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buffer,
			Offset: vk.DeviceSize(offset),
			Range:  vk.DeviceSize(size),
		}},
	})
	return w
}

func (w *DescriptorWriter) CombinedImageSampler(binding uint32, view vk.ImageView, sampler vk.Sampler, layout vk.ImageLayout) *DescriptorWriter {
	w.writes = append(w.writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          w.Set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     sampler,
			ImageView:   view,
			ImageLayout: layout,
		}},
	})
	return w
}

// Update submits the collected writes.
func (w *DescriptorWriter) Update(vc *VulkanContext) {
	if len(w.writes) == 0 {
		return
	}
	vk.UpdateDescriptorSets(vc.Device.LogicalDevice, uint32(len(w.writes)), w.writes, 0, nil)
	w.writes = w.writes[:0]
}
