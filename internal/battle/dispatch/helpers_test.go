package dispatch

import "skirmish/catalog"

func moveRecord(id string) catalog.Move {
	return catalog.Move{ID: id, Name: id, Type: catalog.TypeNormal, Category: catalog.CategoryStatus, PP: 10, Target: catalog.TargetSelf}
}
