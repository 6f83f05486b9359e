package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultStateSeedsVocabulary(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultState())
	require.Equal(t, []string{"Dell", "HP", "Lenovo", "Apple"}, r.Brands())
	require.Equal(t, []string{"Latitude 3420", "Latitude 5430", "OptiPlex 7090"}, r.ModelsFor("Dell"))
	require.Equal(t, []string{"Corporativo", "Naucalpan", "Campo", "Tultitlán"}, r.Locations())
}

func TestRemoveBrandCascadesModels(t *testing.T) {
	t.Parallel()

	r := NewRegistry(State{})
	changed, err := r.AddBrand("X")
	require.NoError(t, err)
	require.True(t, changed)
	changed, err = r.AddModel("X", "Y")
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = r.RemoveBrand("X")
	require.NoError(t, err)
	require.True(t, changed)
	require.Empty(t, r.ModelsFor("X"))
	require.NotContains(t, r.Brands(), "X")
	require.NotContains(t, r.State().ModelsByBrand, "X")
}

func TestAddBrandTwiceKeepsOriginalPosition(t *testing.T) {
	t.Parallel()

	r := NewRegistry(State{Brands: []string{"A", "B"}})
	_, err := r.AddBrand("X")
	require.NoError(t, err)
	_, err = r.AddBrand("C")
	require.NoError(t, err)

	changed, err := r.AddBrand("X")
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, []string{"A", "B", "X", "C"}, r.Brands())
}

func TestAddBrandIsCaseSensitive(t *testing.T) {
	t.Parallel()

	r := NewRegistry(State{Brands: []string{"Dell"}})
	changed, err := r.AddBrand("dell")
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, []string{"Dell", "dell"}, r.Brands())
}

func TestAddBrandTrimsAndRejectsBlank(t *testing.T) {
	t.Parallel()

	r := NewRegistry(State{})
	_, err := r.AddBrand("   ")
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = r.AddBrand("  Acer ")
	require.NoError(t, err)
	require.Equal(t, []string{"Acer"}, r.Brands())
	require.NotNil(t, r.ModelsFor("Acer"))
	require.Empty(t, r.ModelsFor("Acer"))
}

func TestAddModelRequiresKnownBrand(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultState())
	_, err := r.AddModel("Toshiba", "Satellite")
	require.ErrorIs(t, err, ErrInvalidReference)
	require.NotContains(t, r.Brands(), "Toshiba")
	require.NotContains(t, r.State().ModelsByBrand, "Toshiba")
}

func TestAddModelDuplicateIsNoop(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultState())
	changed, err := r.AddModel("HP", "ProBook 450")
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, []string{"EliteDesk 800", "ProBook 450"}, r.ModelsFor("HP"))
}

func TestRemoveModelMissingIsNoop(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultState())
	changed, err := r.RemoveModel("HP", "Pavilion")
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = r.RemoveModel("Unknown", "Pavilion")
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = r.RemoveModel("HP", "ProBook 450")
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, []string{"EliteDesk 800"}, r.ModelsFor("HP"))
}

func TestLocationsInsertAndRemove(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultState())
	changed, err := r.AddLocation("Monterrey")
	require.NoError(t, err)
	require.True(t, changed)
	changed, err = r.AddLocation("Monterrey")
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = r.RemoveLocation("Campo")
	require.NoError(t, err)
	require.True(t, changed)
	changed, err = r.RemoveLocation("Campo")
	require.NoError(t, err)
	require.False(t, changed)

	require.Equal(t, []string{"Corporativo", "Naucalpan", "Tultitlán", "Monterrey"}, r.Locations())
	require.True(t, r.HasLocation("Monterrey"))
	require.False(t, r.HasLocation("monterrey"))
}

func TestModelsForUnknownBrandIsEmpty(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultState())
	models := r.ModelsFor("Nope")
	require.NotNil(t, models)
	require.Empty(t, models)
}

func TestNewRegistryNormalizesState(t *testing.T) {
	t.Parallel()

	r := NewRegistry(State{
		Brands: []string{"Dell", "Dell", " ", "HP"},
		ModelsByBrand: map[string][]string{
			"Dell":   {"A", "A", "B"},
			"Orphan": {"Z"},
		},
		Locations: []string{"Campo", "Campo"},
	})

	require.Equal(t, []string{"Dell", "HP"}, r.Brands())
	require.Equal(t, []string{"A", "B"}, r.ModelsFor("Dell"))
	require.Empty(t, r.ModelsFor("HP"))
	require.NotContains(t, r.State().ModelsByBrand, "Orphan")
	require.Equal(t, []string{"Campo"}, r.Locations())
}

func TestStateAndClonesAreIndependent(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultState())
	state := r.State()
	state.Brands[0] = "Mutated"
	state.ModelsByBrand["HP"][0] = "Mutated"

	clone := r.Clone()
	_, err := clone.AddBrand("Acer")
	require.NoError(t, err)

	require.Equal(t, "Dell", r.Brands()[0])
	require.Equal(t, "EliteDesk 800", r.ModelsFor("HP")[0])
	require.False(t, r.HasBrand("Acer"))
	require.True(t, clone.HasBrand("Acer"))
}
