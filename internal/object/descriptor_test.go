package object_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/testutil"
)

type stubHolder struct {
	fault   bool
	objects []object.Persistent
}

func (h *stubHolder) IsFault() bool { return h.fault }
func (h *stubHolder) Invalidate()   { h.fault = true }
func (h *stubHolder) Objects(context.Context) ([]object.Persistent, error) {
	h.fault = false
	return h.objects, nil
}
func (h *stubHolder) SetObjects(objs []object.Persistent) { h.objects, h.fault = objs, false }
func (h *stubHolder) AddDirectly(o object.Persistent)     { h.objects = append(h.objects, o) }
func (h *stubHolder) RemoveDirectly(object.Persistent)    {}

type stubFault struct{ target object.Persistent }

func (f stubFault) ResolveFault(context.Context, object.Persistent, string) (any, error) {
	return f.target, nil
}

func TestDescriptorRegistry_Properties(t *testing.T) {
	registry := object.NewDescriptorRegistry(testutil.GalleryResolver())

	d := registry.Descriptor("Painting")
	require.NotNil(t, d)
	assert.Same(t, d, registry.Descriptor("Painting"), "descriptors are cached")
	assert.Nil(t, registry.Descriptor("Nope"))

	var names []string
	for _, p := range d.Properties() {
		names = append(names, p.Name()+":"+p.Kind().String())
	}
	assert.Equal(t, []string{
		"title:attribute", "price:attribute",
		"artist:to-one", "gallery:to-one", "info:to-one",
	}, names)

	artist := d.Property("artist")
	assert.Equal(t, "Artist", artist.TargetDescriptor().Entity().Name)
	rev := artist.ReverseProperty()
	require.NotNil(t, rev)
	assert.Equal(t, "paintings", rev.Name())
	assert.Equal(t, object.ToManyProperty, rev.Kind())
}

func TestProperty_FaultsAndHolders(t *testing.T) {
	registry := object.NewDescriptorRegistry(testutil.GalleryResolver())
	registry.ToManyFactory = func(object.Persistent, string) object.ToManyHolder {
		return &stubHolder{fault: true}
	}
	target := object.NewDataObject("Artist")
	registry.ToOneFault = stubFault{target: target}

	painting := registry.Descriptor("Painting").NewObject()
	registry.Descriptor("Painting").InjectValueHolders(painting, true)

	p := registry.Descriptor("Painting").Property("artist")
	assert.True(t, p.IsFault(painting))
	v, err := p.Read(context.Background(), painting)
	require.NoError(t, err)
	assert.Same(t, target, v)
	assert.False(t, p.IsFault(painting), "resolved value is stored")

	artist := registry.Descriptor("Artist")
	a := artist.NewObject()
	paintings := artist.Property("paintings")
	assert.True(t, paintings.IsFault(a), "unset to-many is a fault")
	holder := paintings.ToManyHolder(a)
	require.NotNil(t, holder)
	assert.Same(t, holder, paintings.ToManyHolder(a))
	holder.SetObjects(nil)
	assert.False(t, paintings.IsFault(a))
}

func TestClassDescriptor_ShallowMerge(t *testing.T) {
	registry := object.NewDescriptorRegistry(testutil.GalleryResolver())
	d := registry.Descriptor("Artist")

	from := d.NewObject()
	from.WritePropertyDirectly("name", "Monet")
	from.WritePropertyDirectly("paintings", &stubHolder{})
	to := d.NewObject()

	d.ShallowMerge(from, to)
	assert.Equal(t, "Monet", to.ReadPropertyDirectly("name"))
	assert.Nil(t, to.ReadPropertyDirectly("paintings"), "relationships are not merged")
}

func TestDataObject_WithoutContext(t *testing.T) {
	o := object.NewDataObject("Artist")
	require.NoError(t, o.WriteProperty(context.Background(), "name", "x"))
	v, err := o.ReadProperty(context.Background(), "name")
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	o.WritePropertyDirectly("name", nil)
	assert.NotContains(t, o.Values(), "name")
	assert.Equal(t, object.Transient, o.PersistenceState())
}
