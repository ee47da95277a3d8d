package graphql

// 预置查询：/usuariosByRole 在只给变量时使用
const (
	OpUsuariosPorRol       = "ObtenerUsuariosPorRol"
	OpUsuariosPorNombreRol = "ObtenerUsuariosPorNombreRol"
)

const userWithRolesAndLogs = `{
    idUsuario
    username
    email
    nombre
    apellido
    fechaCreacion
    fechaModificacion
    ultimoLogin
    activo
    roles { idRol nombre descripcion }
    logs { idLog fechaEvento tipoEvento modulo accion entidad nivel }
  }`

const (
	QueryUsuariosPorRol = `query ObtenerUsuariosPorRol($idRol: ID!) {
  usuariosConRol(idRol: $idRol) ` + userWithRolesAndLogs + `
}`

	QueryUsuariosPorNombreRol = `query ObtenerUsuariosPorNombreRol($nombreRol: String!) {
  usuariosConRolNombre(nombreRol: $nombreRol) ` + userWithRolesAndLogs + `
}`
)
