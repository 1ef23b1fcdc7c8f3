package readers

import (
	"github.com/notargets/DGHalo/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
)

func TestReadMeshFile_Missing(t *testing.T) {
	_, err := ReadMeshFile("does-not-exist.neu")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// Two tetrahedra in Gambit neutral format
const twoTetNeu = `        CONTROL INFO 2.0.0
** GAMBIT NEUTRAL FILE
two tets
PROGRAM:                  Test     VERSION:  1.0
Mon Jan  1 00:00:00 2025
     NUMNP     NELEM     NGRPS    NBSETS     NDFCD     NDFVL
         8         2         1         0         3         3
ENDOFSECTION
   NODAL COORDINATES 2.0.0
         1   0.00000000000e+00   0.00000000000e+00   0.00000000000e+00
         2   1.00000000000e+00   0.00000000000e+00   0.00000000000e+00
         3   0.00000000000e+00   1.00000000000e+00   0.00000000000e+00
         4   0.00000000000e+00   0.00000000000e+00   1.00000000000e+00
         5   1.00000000000e+00   1.00000000000e+00   0.00000000000e+00
         6   1.00000000000e+00   0.00000000000e+00   1.00000000000e+00
         7   0.00000000000e+00   1.00000000000e+00   1.00000000000e+00
         8   1.00000000000e+00   1.00000000000e+00   1.00000000000e+00
ENDOFSECTION
   ELEMENTS/CELLS 2.0.0
         1         6         4         1         2         3         4
         2         6         4         2         5         6         8
ENDOFSECTION`

func TestReadMeshFile_ElementTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twotet.neu")
	require.NoError(t, os.WriteFile(path, []byte(twoTetNeu), 0o644))

	m, err := ReadMeshFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8, m.NumNodes)
	assert.Equal(t, 2, m.NumElements)
	// Types come from the file, not from the vertex count
	assert.Equal(t, []mesh.GeometryType{mesh.Tet, mesh.Tet}, m.ElementTypes)
	for _, verts := range m.EToV {
		assert.Len(t, verts, 4)
	}
}
