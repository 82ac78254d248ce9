package killswitch

import "os"

// File es el kill-switch por archivo: crear el archivo activa el apagado de
// emergencia (liquidar todo, bloquear entradas); borrarlo lo desactiva. Es
// el mecanismo más robusto cuando el proceso está medio sordo: no necesita
// red ni señales, solo un `touch STOP`.
type File struct {
	path string
}

// New crea el kill-switch sobre la ruta dada.
func New(path string) *File {
	return &File{path: path}
}

// Active devuelve true si el archivo existe.
func (f *File) Active() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// Path devuelve la ruta vigilada, para logs.
func (f *File) Path() string { return f.path }
