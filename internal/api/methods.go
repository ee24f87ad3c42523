package api

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "bagtrack.v1.Bagtrack"

// Method names of ServiceName.
const (
	MethodLogin          = "Login"
	MethodLogout         = "Logout"
	MethodMe             = "Me"
	MethodChangePassword = "ChangePassword"
	MethodCreateStaff    = "CreateStaff"
	MethodRemoveStaff    = "RemoveStaff"
	MethodListStaff      = "ListStaff"

	MethodCreateFlight    = "CreateFlight"
	MethodGetFlight       = "GetFlight"
	MethodListFlights     = "ListFlights"
	MethodReassignGate    = "ReassignGate"
	MethodFlightReadiness = "FlightReadiness"
	MethodRemoveFlight    = "RemoveFlight"

	MethodCreatePassenger = "CreatePassenger"
	MethodGetPassenger    = "GetPassenger"
	MethodListPassengers  = "ListPassengers"
	MethodRemovePassenger = "RemovePassenger"
	MethodCheckIn         = "CheckIn"
	MethodBoard           = "Board"
	MethodReportIssue     = "ReportIssue"
	MethodDashboard       = "Dashboard"

	MethodGetBag            = "GetBag"
	MethodListBags          = "ListBags"
	MethodAdvanceToSecurity = "AdvanceToSecurity"
	MethodClearSecurity     = "ClearSecurity"
	MethodFlagViolation     = "FlagViolation"
	MethodLoadBag           = "LoadBag"

	MethodPostMessage     = "PostMessage"
	MethodListBoard       = "ListBoard"
	MethodHandleViolation = "HandleViolation"
	MethodNotifyDeparture = "NotifyDeparture"
	MethodResolveRemoval  = "ResolveRemoval"
	MethodDepartFlight    = "DepartFlight"
	MethodListIssues      = "ListIssues"
)

// FullMethod returns the gRPC path of a method, e.g. "/bagtrack.v1.Bagtrack/Login".
func FullMethod(name string) string { return "/" + ServiceName + "/" + name }
